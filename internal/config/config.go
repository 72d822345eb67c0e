// Package config defines all configuration structures for m2pcalc.  Loading
// lives in loader.go and defaults in defaults.go; this file holds only plain
// data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	Mode            string          `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration   `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64           `mapstructure:"max_body_size"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MetricsConfig controls the prometheus registry and its endpoint.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	Path                 string `mapstructure:"path"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
}

// StereoConfig holds the assigner defaults.  HeadPattern and TailPattern
// apply to requests that name no endpoints; they default to the vinyl caps.
type StereoConfig struct {
	HeadPattern       string `mapstructure:"head_pattern"`
	TailPattern       string `mapstructure:"tail_pattern"`
	Termination       string `mapstructure:"termination"`
	MaxPasses         int    `mapstructure:"max_passes"`
	RestrictToTargets bool   `mapstructure:"restrict_to_targets"`
}

// BatchConfig bounds batch concurrency.
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// TacticityConfig tunes the descriptor sequence generator.
type TacticityConfig struct {
	MaxUniqueAttempts int   `mapstructure:"max_unique_attempts"`
	Seed              int64 `mapstructure:"seed"` // 0 = time based
}

// CacheConfig enables the redis backed assignment result cache.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Mode        string        `mapstructure:"mode"` // standalone, sentinel, cluster
	Addrs       []string      `mapstructure:"addrs"`
	MasterName  string        `mapstructure:"master_name"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	TTL         time.Duration `mapstructure:"ttl"`
	Prefix      string        `mapstructure:"prefix"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Log       logging.LogConfig `mapstructure:"log"`
	Server    ServerConfig      `mapstructure:"server"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	Stereo    StereoConfig      `mapstructure:"stereo"`
	Batch     BatchConfig       `mapstructure:"batch"`
	Tacticity TacticityConfig   `mapstructure:"tacticity"`
	Cache     CacheConfig       `mapstructure:"cache"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("config: server.rate_limit.requests_per_second must be > 0, got %g", c.Server.RateLimit.RequestsPerSecond)
		}
		if c.Server.RateLimit.Burst < 1 {
			return fmt.Errorf("config: server.rate_limit.burst must be ≥ 1, got %d", c.Server.RateLimit.Burst)
		}
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
	}

	// Stereo
	if c.Stereo.HeadPattern == "" || c.Stereo.TailPattern == "" {
		return fmt.Errorf("config: stereo.head_pattern and stereo.tail_pattern are required")
	}
	if c.Stereo.MaxPasses < 1 {
		return fmt.Errorf("config: stereo.max_passes must be ≥ 1, got %d", c.Stereo.MaxPasses)
	}

	// Batch
	if c.Batch.Workers < 1 {
		return fmt.Errorf("config: batch.workers must be ≥ 1, got %d", c.Batch.Workers)
	}

	// Tacticity
	if c.Tacticity.MaxUniqueAttempts < 1 {
		return fmt.Errorf("config: tacticity.max_unique_attempts must be ≥ 1, got %d", c.Tacticity.MaxUniqueAttempts)
	}

	// Cache
	if c.Cache.Enabled {
		switch c.Cache.Mode {
		case "standalone", "sentinel", "cluster":
		default:
			return fmt.Errorf("config: cache.mode %q is invalid; expected standalone|sentinel|cluster", c.Cache.Mode)
		}
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("config: cache.addrs is required when the cache is enabled")
		}
		if c.Cache.Mode == "sentinel" && c.Cache.MasterName == "" {
			return fmt.Errorf("config: cache.master_name is required in sentinel mode")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("config: cache.ttl must be > 0, got %s", c.Cache.TTL)
		}
	}

	// Log
	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
