// Package http wires the gin engine and HTTP server of the m2pcalc API.
package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/prometheus"
	"github.com/polymerlab/m2pcalc/internal/interfaces/http/handlers"
	"github.com/polymerlab/m2pcalc/internal/interfaces/http/middleware"
)

type RouterConfig struct {
	// Handlers
	StereoHandler   *handlers.StereoHandler
	MoleculeHandler *handlers.MoleculeHandler
	HealthHandler   *handlers.HealthHandler

	// Middleware
	RateLimiter     *middleware.ClientLimiter
	RateLimitConfig middleware.RateLimitConfig
	LoggingConfig   middleware.LoggingConfig
	MaxBodySize     int64
	RequestTimeout  time.Duration

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter builds the engine.  Middleware order: Recovery, RequestID,
// Metrics, RequestLogging, RateLimit, MaxBodySize, Timeout.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = prometheus.NewNoopMetrics()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// --- Global middleware (applied to every request) ---
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.RequestLogging(logger, cfg.LoggingConfig))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitConfig, metrics))
	}
	r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	// --- Public health checks ---
	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	if cfg.StereoHandler != nil {
		cfg.StereoHandler.RegisterRoutes(api)
	}
	if cfg.MoleculeHandler != nil {
		cfg.MoleculeHandler.RegisterRoutes(api)
	}

	return r
}
