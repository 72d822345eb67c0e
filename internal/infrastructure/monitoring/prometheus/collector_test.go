package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mocks "github.com/polymerlab/m2pcalc/internal/testutil"
)

func newCollector(t *testing.T, cfg CollectorConfig) (MetricsCollector, *mocks.MockLogger) {
	t.Helper()
	logger := mocks.NewMockLogger()
	c, err := NewMetricsCollector(cfg, logger)
	require.NoError(t, err)
	return c, logger
}

func scrape(t *testing.T, c MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "stereo"}, nil)
	assert.Error(t, err, "namespace is required")

	c, _ := newCollector(t, CollectorConfig{Namespace: "m2p", EnableProcessMetrics: true, EnableGoMetrics: true})
	body := scrape(t, c)
	assert.Contains(t, body, "m2p_process_cpu_seconds_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestRegister_NamesAndLabels(t *testing.T) {
	c, _ := newCollector(t, CollectorConfig{
		Namespace:   "m2p",
		Subsystem:   "stereo",
		ConstLabels: map[string]string{"instance": "a"},
	})

	c.RegisterCounter("flips_total", "Flips", "variant").WithLabelValues("vinyl").Add(3)
	c.RegisterGauge("workers", "Workers").WithLabelValues().Set(4)
	c.RegisterHistogram("passes", "Passes", []float64{1, 2}).WithLabelValues().Observe(1)

	body := scrape(t, c)
	assert.Contains(t, body, `m2p_stereo_flips_total{instance="a",variant="vinyl"} 3`)
	assert.Contains(t, body, `m2p_stereo_workers{instance="a"} 4`)
	assert.Contains(t, body, `m2p_stereo_passes_bucket{instance="a",le="2"} 1`)
}

func TestRegister_IsIdempotent(t *testing.T) {
	c, _ := newCollector(t, CollectorConfig{Namespace: "m2p"})
	c.RegisterCounter("runs_total", "Runs").WithLabelValues().Inc()
	c.RegisterCounter("runs_total", "Runs").WithLabelValues().Inc()

	n, err := testutil.GatherAndCount(c.Gatherer(), "m2p_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, scrape(t, c), "m2p_runs_total 2")
}

func TestRegister_ConcurrentCallersShareOneVector(t *testing.T) {
	c, _ := newCollector(t, CollectorConfig{Namespace: "m2p"})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("items_total", "Items", "status").WithLabelValues("ok").Inc()
		}()
	}
	wg.Wait()
	assert.Contains(t, scrape(t, c), `m2p_items_total{status="ok"} 32`)
}

func TestRegister_TypeMismatchFallsBackToNoop(t *testing.T) {
	c, logger := newCollector(t, CollectorConfig{Namespace: "m2p"})
	c.RegisterCounter("centers", "Centers").WithLabelValues().Inc()

	g := c.RegisterGauge("centers", "Centers")
	assert.IsType(t, noopGaugeVec{}, g)
	g.WithLabelValues().Set(99)
	h := c.RegisterHistogram("centers", "Centers", nil)
	assert.IsType(t, noopHistogramVec{}, h)

	body := scrape(t, c)
	assert.Contains(t, body, "# TYPE m2p_centers counter")
	assert.NotContains(t, body, "99")
	assert.True(t, logger.HasMessage("warn", "metric type mismatch"))
}

func TestMustRegisterAndUnregister(t *testing.T) {
	c, _ := newCollector(t, CollectorConfig{Namespace: "m2p"})
	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "external_events_total"})
	c.MustRegister(extra)
	extra.Inc()
	assert.Contains(t, scrape(t, c), "external_events_total 1")

	assert.True(t, c.Unregister(extra))
	assert.False(t, c.Unregister(extra))
	assert.NotContains(t, scrape(t, c), "external_events_total")
}

func TestNoopMetrics(t *testing.T) {
	m := NewNoopMetrics()
	assert.NotPanics(t, func() {
		m.StereoAssignmentsTotal.WithLabelValues("general", "ok").Inc()
		m.HTTPActiveRequests.WithLabelValues("GET").Dec()
		m.StereoAssignmentDuration.WithLabelValues("general").Observe(0.2)
	})
}

func TestTimer(t *testing.T) {
	c, _ := newCollector(t, CollectorConfig{Namespace: "m2p"})
	hist := c.RegisterHistogram("step_seconds", "Step", nil)
	timer := NewTimer(hist.WithLabelValues())
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.ObserveDuration(), 5*time.Millisecond)
	assert.Contains(t, scrape(t, c), "m2p_step_seconds_count 1")

	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}
