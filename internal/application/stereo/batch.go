package stereo

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/prometheus"
	"github.com/polymerlab/m2pcalc/pkg/errors"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

// LoadBatchJob reads a batch job from a YAML or JSON file.  Files ending in
// .json are decoded as JSON, everything else as YAML.
func LoadBatchJob(path string) (*stereotypes.BatchJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBatchJobRead, "cannot read batch job").WithDetail(path)
	}
	job, err := ParseBatchJob(data, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ParseBatchJob decodes a batch job document and checks that it has items.
func ParseBatchJob(data []byte, isJSON bool) (*stereotypes.BatchJob, error) {
	var job stereotypes.BatchJob
	var err error
	if isJSON {
		err = json.Unmarshal(data, &job)
	} else {
		err = yaml.Unmarshal(data, &job)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBatchJobInvalid, "cannot decode batch job")
	}
	if err := validateBatchJob(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

func validateBatchJob(job *stereotypes.BatchJob) error {
	if job == nil {
		return errors.New(errors.ErrCodeBatchJobInvalid, "batch job is required")
	}
	if len(job.Items) == 0 {
		return errors.New(errors.ErrCodeBatchJobInvalid, "batch job has no items")
	}
	if job.Workers < 0 {
		return errors.Newf(errors.ErrCodeBatchJobInvalid, "workers must not be negative, got %d", job.Workers)
	}
	if !job.Defaults.Variant.IsValid() {
		return errors.Newf(errors.ErrCodeBatchJobInvalid, "unknown default variant %q", job.Defaults.Variant)
	}
	return nil
}

// mergeDefaults fills the fields item leaves empty from defaults.
func mergeDefaults(item, defaults stereotypes.BatchItem) stereotypes.BatchItem {
	if item.Variant == "" {
		item.Variant = defaults.Variant
	}
	if item.HeadPattern == "" {
		item.HeadPattern = defaults.HeadPattern
	}
	if item.TailPattern == "" {
		item.TailPattern = defaults.TailPattern
	}
	if item.MaxPasses == nil {
		item.MaxPasses = defaults.MaxPasses
	}
	if item.RestrictToTargets == nil {
		item.RestrictToTargets = defaults.RestrictToTargets
	}
	if item.Targets == nil {
		item.Targets = defaults.Targets
	}
	return item
}

// RunBatch runs every item of job with bounded concurrency.  Item failures
// are recorded on the item; RunBatch itself fails only for an invalid job.
// Results keep the input order.
func (s *serviceImpl) RunBatch(ctx context.Context, job *stereotypes.BatchJob) (*stereotypes.BatchResult, error) {
	if err := validateBatchJob(job); err != nil {
		s.metrics.BatchJobsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	start := time.Now()
	cfg, _ := s.snapshot()

	jobID := job.ID
	if jobID == "" {
		jobID = uuid.New().String()
	}
	workers := job.Workers
	if workers == 0 {
		workers = cfg.BatchWorkers
	}
	logger := s.logger.With(logging.String("job_id", jobID))
	logger.Info("batch started", logging.Int("items", len(job.Items)), logging.Int("workers", workers))

	result := &stereotypes.BatchResult{
		JobID: jobID,
		Items: make([]stereotypes.BatchItemResult, len(job.Items)),
	}
	active := s.metrics.BatchActiveWorkers.WithLabelValues()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range job.Items {
		i := i
		item := mergeDefaults(job.Items[i], job.Defaults)
		g.Go(func() error {
			active.Inc()
			defer active.Dec()

			res := stereotypes.BatchItemResult{Index: i, Name: item.Name}
			resp, err := s.runItem(gctx, item)
			if err != nil {
				res.Error = errorDetail(err)
				logger.Debug("batch item failed",
					logging.Int("index", i),
					logging.String("name", item.Name),
					logging.Err(err))
			} else {
				res.Response = resp
			}
			prometheus.RecordBatchItem(s.metrics, err)
			result.Items[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for _, it := range result.Items {
		if it.Error != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	elapsed := time.Since(start)
	result.DurationMS = elapsed.Milliseconds()

	status := "success"
	if result.Failed > 0 {
		status = "partial"
	}
	if result.Succeeded == 0 {
		status = "failed"
	}
	s.metrics.BatchJobsTotal.WithLabelValues(status).Inc()
	s.metrics.BatchDuration.WithLabelValues().Observe(elapsed.Seconds())

	logger.Info("batch finished",
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Duration("duration", elapsed))
	return result, nil
}

func (s *serviceImpl) runItem(ctx context.Context, item stereotypes.BatchItem) (*stereotypes.AssignResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "batch cancelled")
	}
	req := item.AssignRequest
	switch item.Variant {
	case "", stereotypes.VariantGeneral:
		return s.Assign(ctx, &req)
	case stereotypes.VariantVinyl:
		return s.AssignVinyl(ctx, &req)
	}
	return nil, errors.Newf(errors.ErrCodeBatchJobInvalid, "unknown variant %q", item.Variant)
}
