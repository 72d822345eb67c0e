package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
	HTTPRateLimited     CounterVec

	// Stereo assignment
	StereoAssignmentsTotal    CounterVec
	StereoAssignmentDuration  HistogramVec
	StereoFirstPassMismatches HistogramVec
	StereoFlipsTotal          CounterVec
	StereoResidualMismatches  HistogramVec
	StereoCentersPerMolecule  HistogramVec
	TerminationFailuresTotal  CounterVec

	// Tacticity
	TacticitySequencesTotal CounterVec

	// Result cache
	ResultCacheRequests CounterVec

	// Batch
	BatchJobsTotal     CounterVec
	BatchItemsTotal    CounterVec
	BatchActiveWorkers GaugeVec
	BatchDuration      HistogramVec

	// System Health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultStereoDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultBatchDurationBuckets  = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
	DefaultCountBuckets          = []float64{0, 1, 2, 5, 10, 20, 50, 100, 200, 500}
)

// registrar is the registration half of MetricsCollector.
type registrar interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
}

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return newAppMetrics(collector)
}

func newAppMetrics(r registrar) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = r.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = r.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = r.RegisterGauge("http_active_requests", "Active HTTP requests", "method")
	m.HTTPRateLimited = r.RegisterCounter("http_rate_limited_total", "Requests rejected by the rate limiter", "path")

	// Stereo
	m.StereoAssignmentsTotal = r.RegisterCounter("stereo_assignments_total", "Stereo assignments", "variant", "status")
	m.StereoAssignmentDuration = r.RegisterHistogram("stereo_assignment_duration_seconds", "Stereo assignment duration", DefaultStereoDurationBuckets, "variant")
	m.StereoFirstPassMismatches = r.RegisterHistogram("stereo_first_pass_mismatches", "Mismatched centers after the first pass", DefaultCountBuckets, "variant")
	m.StereoFlipsTotal = r.RegisterCounter("stereo_flips_total", "Chirality tags flipped by the correction pass", "variant")
	m.StereoResidualMismatches = r.RegisterHistogram("stereo_residual_mismatches", "Mismatched centers left after correction", DefaultCountBuckets, "variant")
	m.StereoCentersPerMolecule = r.RegisterHistogram("stereo_backbone_centers", "Chiral centers found on the backbone", DefaultCountBuckets, "variant")
	m.TerminationFailuresTotal = r.RegisterCounter("stereo_termination_failures_total", "Vinyl termination reactions without a valid product")

	// Tacticity
	m.TacticitySequencesTotal = r.RegisterCounter("tacticity_sequences_total", "Generated descriptor sequences")

	// Result cache
	m.ResultCacheRequests = r.RegisterCounter("result_cache_requests_total", "Assignment result cache lookups", "result")

	// Batch
	m.BatchJobsTotal = r.RegisterCounter("batch_jobs_total", "Batch jobs run", "status")
	m.BatchItemsTotal = r.RegisterCounter("batch_items_total", "Batch items processed", "status")
	m.BatchActiveWorkers = r.RegisterGauge("batch_active_workers", "Batch items in flight")
	m.BatchDuration = r.RegisterHistogram("batch_duration_seconds", "Batch job duration", DefaultBatchDurationBuckets)

	// System Health
	m.ServiceUptime = r.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = r.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = r.RegisterCounter("errors_total", "Total errors", "component", "error_code")

	return m
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// StereoOutcome summarises one assignment for RecordStereoAssignment.
type StereoOutcome struct {
	Variant             string
	Centers             int
	FirstPassMismatches int
	Flips               int
	Residual            int
	Err                 error
	Duration            time.Duration
}

func RecordStereoAssignment(metrics *AppMetrics, o StereoOutcome) {
	status := "success"
	if o.Err != nil {
		status = "error"
	} else if o.Residual > 0 {
		status = "residual"
	}
	metrics.StereoAssignmentsTotal.WithLabelValues(o.Variant, status).Inc()
	metrics.StereoAssignmentDuration.WithLabelValues(o.Variant).Observe(o.Duration.Seconds())
	if o.Err != nil {
		return
	}
	metrics.StereoCentersPerMolecule.WithLabelValues(o.Variant).Observe(float64(o.Centers))
	metrics.StereoFirstPassMismatches.WithLabelValues(o.Variant).Observe(float64(o.FirstPassMismatches))
	metrics.StereoFlipsTotal.WithLabelValues(o.Variant).Add(float64(o.Flips))
	metrics.StereoResidualMismatches.WithLabelValues(o.Variant).Observe(float64(o.Residual))
}

func RecordBatchItem(metrics *AppMetrics, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.BatchItemsTotal.WithLabelValues(status).Inc()
}

// RecordCacheLookup counts a result cache lookup as hit, miss or error.
func RecordCacheLookup(metrics *AppMetrics, hit bool, err error) {
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case hit:
		result = "hit"
	}
	metrics.ResultCacheRequests.WithLabelValues(result).Inc()
}

// RecordHealthCheck sets the component gauge to 1 when up, 0 when down.
func RecordHealthCheck(metrics *AppMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	metrics.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func RecordError(metrics *AppMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}
