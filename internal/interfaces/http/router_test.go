package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appstereo "github.com/polymerlab/m2pcalc/internal/application/stereo"
	"github.com/polymerlab/m2pcalc/internal/config"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/prometheus"
	"github.com/polymerlab/m2pcalc/internal/interfaces/http/handlers"
	"github.com/polymerlab/m2pcalc/internal/interfaces/http/middleware"
	"github.com/polymerlab/m2pcalc/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	engine    *gin.Engine
	collector prometheus.MetricsCollector
	logger    *testutil.MockLogger
}

func newFixture(t *testing.T, limiter *middleware.ClientLimiter) fixture {
	t.Helper()
	logger := testutil.NewMockLogger()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "router"}, logger)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)
	svc, err := appstereo.NewService(appstereo.DefaultConfig(), metrics, logger)
	require.NoError(t, err)

	rl := middleware.DefaultRateLimitConfig()
	rl.BurstSize = 2
	engine := NewRouter(RouterConfig{
		StereoHandler:    handlers.NewStereoHandler(svc, logger),
		MoleculeHandler:  handlers.NewMoleculeHandler(svc),
		HealthHandler:    handlers.NewHealthHandler("test", handlers.ServiceChecker{Service: svc}),
		RateLimiter:      limiter,
		RateLimitConfig:  rl,
		LoggingConfig:    middleware.DefaultLoggingConfig(),
		MaxBodySize:      1 << 10,
		RequestTimeout:   time.Second,
		Logger:           logger,
		Metrics:          metrics,
		MetricsCollector: collector,
	})
	return fixture{engine: engine, collector: collector, logger: logger}
}

func do(engine http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter_RoutesRegistered(t *testing.T) {
	f := newFixture(t, nil)

	want := map[string]bool{
		"GET /healthz":                     true,
		"GET /readyz":                      true,
		"GET /metrics":                     true,
		"POST /api/v1/stereo/assign":       true,
		"POST /api/v1/stereo/assign-vinyl": true,
		"POST /api/v1/stereo/tacticity":    true,
		"POST /api/v1/stereo/batch":        true,
		"POST /api/v1/molecules/centers":   true,
		"POST /api/v1/molecules/canonical": true,
	}
	got := map[string]bool{}
	for _, r := range f.engine.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	assert.Equal(t, want, got)
}

func TestNewRouter_NilHandlers_NoPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		engine := NewRouter(RouterConfig{})
		w := do(engine, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNewRouter_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)

	body, _ := json.Marshal(map[string]any{"smiles": "N[C@@H](C)C(=O)O"})
	w := do(f.engine, http.MethodPost, "/api/v1/molecules/canonical", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	assert.True(t, f.logger.HasMessage("info", "request completed"))

	w = do(f.engine, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `router_http_requests_total{method="POST",path="/api/v1/molecules/canonical",status_code="200"} 1`)
}

func TestNewRouter_BodyLimit(t *testing.T) {
	f := newFixture(t, nil)

	big := fmt.Sprintf(`{"smiles":"%s"}`, bytes.Repeat([]byte("C"), 4096))
	w := do(f.engine, http.MethodPost, "/api/v1/molecules/canonical", []byte(big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil)
	w := do(f.engine, http.MethodGet, "/api/v1/stereo/assign", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNewRouter_RateLimit(t *testing.T) {
	limiter := middleware.NewClientLimiter(0.001, 2, 0)
	defer limiter.Stop()
	f := newFixture(t, limiter)

	body, _ := json.Marshal(map[string]any{"smiles": "CC"})
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(f.engine, http.MethodPost, "/api/v1/molecules/canonical", body).Code)
	}
	w := do(f.engine, http.MethodPost, "/api/v1/molecules/canonical", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// health checks bypass the limiter
	assert.Equal(t, http.StatusOK, do(f.engine, http.MethodGet, "/healthz", nil).Code)
}

func TestServer_StartStop(t *testing.T) {
	f := newFixture(t, nil)
	srv := NewServer(config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second}, f.engine, logging.NewNopLogger())
	assert.Equal(t, http.Handler(f.engine), srv.Handler())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.NoError(t, <-done)
}
