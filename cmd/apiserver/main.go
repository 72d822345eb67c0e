package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	appstereo "github.com/polymerlab/m2pcalc/internal/application/stereo"
	"github.com/polymerlab/m2pcalc/internal/config"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/database/redis"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/polymerlab/m2pcalc/internal/interfaces/http"
	"github.com/polymerlab/m2pcalc/internal/interfaces/http/handlers"
	"github.com/polymerlab/m2pcalc/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (env only when empty)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	gin.SetMode(cfg.Server.Mode)

	logger.Info("starting m2pcalc API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port))

	var (
		collector prometheus.MetricsCollector
		metrics   = prometheus.NewNoopMetrics()
	)
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableGoMetrics:      cfg.Metrics.EnableGoMetrics,
			EnableProcessMetrics: cfg.Metrics.EnableProcessMetrics,
		}, logger)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		metrics = prometheus.NewAppMetrics(collector)
	}

	checkers := []handlers.HealthChecker{}
	var opts []appstereo.Option
	if cfg.Cache.Enabled {
		rdb, err := redis.NewClient(redis.ConfigFromSettings(cfg.Cache), logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, appstereo.WithResultCache(
			redis.NewResultCache(rdb, logger, redis.WithPrefix(cfg.Cache.Prefix), redis.WithTTL(cfg.Cache.TTL))))
		checkers = append(checkers, rdb)
	}

	svc, err := appstereo.NewService(appstereo.ConfigFromSettings(cfg), metrics, logger, opts...)
	if err != nil {
		return err
	}
	checkers = append(checkers, handlers.ServiceChecker{Service: svc})

	if configPath != "" {
		err := config.Watch(configPath, logger, func(next *config.Config) {
			if err := svc.UpdateConfig(appstereo.ConfigFromSettings(next)); err != nil {
				logger.Warn("rejected reloaded stereo settings", logging.Err(err))
			}
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	var limiter *middleware.ClientLimiter
	rl := middleware.DefaultRateLimitConfig()
	if cfg.Server.RateLimit.Enabled {
		rl.RequestsPerSecond = cfg.Server.RateLimit.RequestsPerSecond
		rl.BurstSize = cfg.Server.RateLimit.Burst
		rl.SkipPaths = append(rl.SkipPaths, cfg.Metrics.Path)
		limiter = middleware.NewClientLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.CleanupInterval)
		defer limiter.Stop()
	}

	logCfg := middleware.DefaultLoggingConfig()
	logCfg.SkipPaths = append(logCfg.SkipPaths, cfg.Metrics.Path)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		StereoHandler:    handlers.NewStereoHandler(svc, logger),
		MoleculeHandler:  handlers.NewMoleculeHandler(svc),
		HealthHandler:    handlers.NewHealthHandler(version, checkers...).WithMetrics(metrics),
		RateLimiter:      limiter,
		RateLimitConfig:  rl,
		LoggingConfig:    logCfg,
		MaxBodySize:      cfg.Server.MaxBodySize,
		RequestTimeout:   cfg.Server.RequestTimeout,
		Logger:           logger,
		Metrics:          metrics,
		MetricsCollector: collector,
		MetricsPath:      cfg.Metrics.Path,
	})
	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Stop(ctx)
}
