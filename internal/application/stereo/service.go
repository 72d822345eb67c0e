// Package stereo provides the application-level service for stereo
// assignment.  It sits between the CLI/HTTP interfaces and the domain
// assigner, adding configuration defaults, run ids, metrics and batching.
package stereo

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/polymerlab/m2pcalc/internal/config"
	domainMol "github.com/polymerlab/m2pcalc/internal/domain/molecule"
	domainStereo "github.com/polymerlab/m2pcalc/internal/domain/stereo"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/prometheus"
	"github.com/polymerlab/m2pcalc/pkg/errors"
	"github.com/polymerlab/m2pcalc/pkg/types/common"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

// Service defines the interface for stereo application operations.
type Service interface {
	Assign(ctx context.Context, req *stereotypes.AssignRequest) (*stereotypes.AssignResponse, error)
	AssignVinyl(ctx context.Context, req *stereotypes.AssignRequest) (*stereotypes.AssignResponse, error)
	ChiralCenters(ctx context.Context, req *stereotypes.MoleculeRequest) (*stereotypes.MoleculeResponse, error)
	Canonical(ctx context.Context, smiles string) (*stereotypes.MoleculeResponse, error)
	GenerateTacticity(ctx context.Context, req *stereotypes.TacticityRequest) (*stereotypes.TacticityResponse, error)
	RunBatch(ctx context.Context, job *stereotypes.BatchJob) (*stereotypes.BatchResult, error)
	UpdateConfig(cfg Config) error
	Config() Config
}

// Config carries the defaults the service applies to requests.
type Config struct {
	HeadPattern       string
	TailPattern       string
	Termination       string
	MaxPasses         int
	RestrictToTargets bool
	BatchWorkers      int
	MaxUniqueAttempts int
	// Seed seeds tacticity draws that carry no seed of their own.  Zero
	// selects a time based seed.
	Seed int64
}

// DefaultConfig returns single-pass defaults with the vinyl caps as the
// backbone ends.
func DefaultConfig() Config {
	return Config{
		HeadPattern:       domainStereo.VinylHeadPattern,
		TailPattern:       domainStereo.VinylTailPattern,
		Termination:       domainStereo.VinylTermination,
		MaxPasses:         1,
		BatchWorkers:      4,
		MaxUniqueAttempts: domainStereo.DefaultMaxUniqueAttempts,
	}
}

// ConfigFromSettings extracts the service defaults from the loaded
// configuration.
func ConfigFromSettings(cfg *config.Config) Config {
	return Config{
		HeadPattern:       cfg.Stereo.HeadPattern,
		TailPattern:       cfg.Stereo.TailPattern,
		Termination:       cfg.Stereo.Termination,
		MaxPasses:         cfg.Stereo.MaxPasses,
		RestrictToTargets: cfg.Stereo.RestrictToTargets,
		BatchWorkers:      cfg.Batch.Workers,
		MaxUniqueAttempts: cfg.Tacticity.MaxUniqueAttempts,
		Seed:              cfg.Tacticity.Seed,
	}
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	mu       sync.RWMutex
	cfg      Config
	assigner *domainStereo.Assigner

	molecules *domainMol.Service
	metrics   *prometheus.AppMetrics
	logger    logging.Logger

	cache  ResultCache
	flight singleflight.Group
}

// NewService creates a new stereo application service.  A nil metrics
// value disables metrics.
func NewService(cfg Config, metrics *prometheus.AppMetrics, logger logging.Logger, opts ...Option) (Service, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopMetrics()
	}
	s := &serviceImpl{
		molecules: domainMol.NewService(logger),
		metrics:   metrics,
		logger:    logger.Named("stereo_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateConfig swaps the service defaults.  In-flight calls keep the
// assigner they started with.
func (s *serviceImpl) UpdateConfig(cfg Config) error {
	def := DefaultConfig()
	if cfg.HeadPattern == "" {
		cfg.HeadPattern = def.HeadPattern
	}
	if cfg.TailPattern == "" {
		cfg.TailPattern = def.TailPattern
	}
	if cfg.Termination == "" {
		cfg.Termination = def.Termination
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = def.BatchWorkers
	}
	a, err := domainStereo.NewAssigner(domainStereo.Options{
		MaxPasses:         cfg.MaxPasses,
		RestrictToTargets: cfg.RestrictToTargets,
		Termination:       cfg.Termination,
	}, s.logger)
	if err != nil {
		return err
	}
	cfg.MaxPasses = a.Options().MaxPasses

	s.mu.Lock()
	s.cfg = cfg
	s.assigner = a
	s.mu.Unlock()

	s.logger.Info("stereo defaults updated",
		logging.String("head", cfg.HeadPattern),
		logging.String("tail", cfg.TailPattern),
		logging.Int("max_passes", cfg.MaxPasses),
		logging.Bool("restrict_to_targets", cfg.RestrictToTargets))
	return nil
}

func (s *serviceImpl) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *serviceImpl) snapshot() (Config, *domainStereo.Assigner) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.assigner
}

// assignerFor returns the shared assigner, or a dedicated one when the
// request overrides pass count or restriction.
func (s *serviceImpl) assignerFor(req *stereotypes.AssignRequest) (Config, *domainStereo.Assigner, error) {
	cfg, a := s.snapshot()
	opts := a.Options()
	changed := false
	if req.MaxPasses != nil && *req.MaxPasses != opts.MaxPasses {
		if *req.MaxPasses < 1 {
			return cfg, nil, errors.Newf(errors.ErrCodeBadRequest, "max_passes must be at least 1, got %d", *req.MaxPasses)
		}
		opts.MaxPasses = *req.MaxPasses
		changed = true
	}
	if req.RestrictToTargets != nil && *req.RestrictToTargets != opts.RestrictToTargets {
		opts.RestrictToTargets = *req.RestrictToTargets
		changed = true
	}
	if !changed {
		return cfg, a, nil
	}
	a, err := domainStereo.NewAssigner(opts, s.logger)
	return cfg, a, err
}

func (s *serviceImpl) Assign(ctx context.Context, req *stereotypes.AssignRequest) (*stereotypes.AssignResponse, error) {
	return s.run(ctx, stereotypes.VariantGeneral, req)
}

func (s *serviceImpl) AssignVinyl(ctx context.Context, req *stereotypes.AssignRequest) (*stereotypes.AssignResponse, error) {
	return s.run(ctx, stereotypes.VariantVinyl, req)
}

func (s *serviceImpl) run(ctx context.Context, variant stereotypes.Variant, req *stereotypes.AssignRequest) (*stereotypes.AssignResponse, error) {
	start := time.Now()
	resp, err := s.assign(ctx, variant, req)
	outcome := prometheus.StereoOutcome{Variant: string(variant), Err: err, Duration: time.Since(start)}
	if err != nil {
		code := errors.GetCode(err)
		if code == errors.ErrCodeTerminationFailed {
			s.metrics.TerminationFailuresTotal.WithLabelValues().Inc()
		}
		prometheus.RecordStereoAssignment(s.metrics, outcome)
		prometheus.RecordError(s.metrics, "stereo", code.String())
		s.logger.Warn("stereo assignment failed",
			logging.String("variant", string(variant)),
			logging.String("code", code.String()),
			logging.Err(err))
		return nil, err
	}

	resp.DurationMS = outcome.Duration.Milliseconds()
	outcome.Centers = len(resp.Centers)
	outcome.FirstPassMismatches = len(resp.FirstPassMismatches)
	outcome.Residual = len(resp.Residual)
	for _, f := range resp.Flipped {
		outcome.Flips += len(f)
	}
	prometheus.RecordStereoAssignment(s.metrics, outcome)

	s.logger.Info("stereo assignment completed",
		logging.String("run_id", resp.RunID),
		logging.String("variant", string(variant)),
		logging.Int("centers", len(resp.Centers)),
		logging.Int("flips", outcome.Flips),
		logging.Int("residual", outcome.Residual),
		logging.Duration("duration", outcome.Duration))
	return resp, nil
}

func (s *serviceImpl) assign(ctx context.Context, variant stereotypes.Variant, req *stereotypes.AssignRequest) (*stereotypes.AssignResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if strings.TrimSpace(req.SMILES) == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	targets, err := domainStereo.ParseTargets(strings.Join(req.Targets, ","))
	if err != nil {
		return nil, err
	}
	cfg, a, err := s.assignerFor(req)
	if err != nil {
		return nil, err
	}
	head, tail := req.HeadPattern, req.TailPattern
	if variant == stereotypes.VariantVinyl {
		head, tail = "", ""
	} else {
		if head == "" {
			head = cfg.HeadPattern
		}
		if tail == "" {
			tail = cfg.TailPattern
		}
	}

	compute := func() (*stereotypes.AssignResponse, error) {
		m, err := s.molecules.Parse(ctx, req.SMILES)
		if err != nil {
			return nil, err
		}
		var rep *domainStereo.Report
		if variant == stereotypes.VariantVinyl {
			_, rep, err = a.AssignVinyl(m, targets)
		} else {
			_, rep, err = a.Assign(m, targets, head, tail)
		}
		if err != nil {
			return nil, err
		}
		// Correction passes do not observe ctx; drop results that arrive late.
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "assignment cancelled")
		}
		return newAssignResponse(variant, rep), nil
	}
	if s.cache == nil {
		return compute()
	}

	key := fingerprint(variant, req.SMILES, targets, head, tail, a.Options())
	var cached stereotypes.AssignResponse
	hit, err := s.cache.Get(ctx, key, &cached)
	prometheus.RecordCacheLookup(s.metrics, hit, err)
	if err != nil {
		s.logger.Warn("result cache lookup failed", logging.Err(err))
	}
	if hit {
		cached.RunID = uuid.New().String()
		cached.Cached = true
		return &cached, nil
	}

	v, err, shared := s.flight.Do(key, func() (interface{}, error) {
		resp, err := compute()
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, resp); err != nil {
			s.logger.Warn("result cache write failed", logging.Err(err))
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	resp := v.(*stereotypes.AssignResponse)
	if shared {
		dup := *resp
		dup.RunID = uuid.New().String()
		resp = &dup
	}
	return resp, nil
}

func newAssignResponse(variant stereotypes.Variant, rep *domainStereo.Report) *stereotypes.AssignResponse {
	resp := &stereotypes.AssignResponse{
		RunID:               uuid.New().String(),
		Variant:             variant,
		SMILES:              rep.SMILES,
		Backbone:            rep.Backbone,
		Centers:             rep.Centers,
		Specified:           make(map[int]string, len(rep.Specified)),
		FirstPassMismatches: rep.FirstPassMismatches,
		Flipped:             rep.Flipped,
		Residual:            rep.Residual,
		Passes:              rep.Passes,
		Converged:           rep.Converged(),
		IgnoredTargets:      rep.IgnoredTargets,
		UntargetedCenters:   rep.UntargetedCenters,
		LostCenters:         rep.LostCenters,
	}
	for atom, d := range rep.Specified {
		resp.Specified[atom] = d.String()
	}
	atoms := make([]int, 0, len(rep.Labels))
	for atom := range rep.Labels {
		atoms = append(atoms, atom)
	}
	sort.Ints(atoms)
	for _, atom := range atoms {
		resp.Labels = append(resp.Labels, stereotypes.ChiralCenter{Atom: atom, Label: rep.Labels[atom]})
	}
	return resp
}

// ChiralCenters lists the labelled centers of a molecule, plus unassigned
// ones when requested.
func (s *serviceImpl) ChiralCenters(ctx context.Context, req *stereotypes.MoleculeRequest) (*stereotypes.MoleculeResponse, error) {
	if req == nil || strings.TrimSpace(req.SMILES) == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	resp, err := s.Canonical(ctx, req.SMILES)
	if err != nil {
		return nil, err
	}
	if !req.IncludeUnassigned {
		kept := resp.Centers[:0]
		for _, c := range resp.Centers {
			if c.Label != "?" {
				kept = append(kept, c)
			}
		}
		resp.Centers = kept
	}
	return resp, nil
}

// Canonical returns the canonical SMILES and summary of a molecule.
func (s *serviceImpl) Canonical(ctx context.Context, smiles string) (*stereotypes.MoleculeResponse, error) {
	if strings.TrimSpace(smiles) == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	sum, err := s.molecules.Summarize(ctx, smiles)
	if err != nil {
		prometheus.RecordError(s.metrics, "molecule", errors.GetCode(err).String())
		return nil, err
	}
	resp := &stereotypes.MoleculeResponse{
		SMILES:          sum.SMILES,
		CanonicalSMILES: sum.CanonicalSMILES,
		Formula:         sum.Formula,
		NumAtoms:        sum.NumAtoms,
		NumHeavyAtoms:   sum.NumHeavyAtoms,
		NumBonds:        sum.NumBonds,
		NumFragments:    sum.NumFragments,
		Centers:         make([]stereotypes.ChiralCenter, 0, len(sum.Centers)),
	}
	for _, c := range sum.Centers {
		resp.Centers = append(resp.Centers, stereotypes.ChiralCenter{Atom: c.Atom, Label: c.Label})
	}
	return resp, nil
}

// GenerateTacticity draws descriptor sequences with the requested meso
// diad fraction.
func (s *serviceImpl) GenerateTacticity(ctx context.Context, req *stereotypes.TacticityRequest) (*stereotypes.TacticityResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "tacticity cancelled")
	}
	cfg, _ := s.snapshot()
	seed := cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	gen := domainStereo.NewTacticityGenerator(rand.New(rand.NewSource(seed)), cfg.MaxUniqueAttempts)
	seqs, err := gen.Generate(req.N, req.Pm, req.DP)
	if err != nil {
		prometheus.RecordError(s.metrics, "tacticity", errors.GetCode(err).String())
		return nil, err
	}

	resp := &stereotypes.TacticityResponse{
		Sequences:     make([]string, len(seqs)),
		MesoFractions: make([]float64, len(seqs)),
		Seed:          seed,
	}
	for i, seq := range seqs {
		resp.Sequences[i] = domainStereo.JoinDescriptors(seq)
		resp.MesoFractions[i] = domainStereo.MesoFraction(seq)
	}
	s.metrics.TacticitySequencesTotal.WithLabelValues().Add(float64(len(seqs)))
	s.logger.Debug("generated tacticity sequences",
		logging.Int("n", req.N),
		logging.Float64("pm", req.Pm),
		logging.Int("dp", req.DP),
		logging.Int64("seed", seed))
	return resp, nil
}

// errorDetail renders err for batch item results.
func errorDetail(err error) *common.ErrorDetail {
	return &common.ErrorDetail{
		Code:    errors.GetCode(err).String(),
		Message: err.Error(),
	}
}
