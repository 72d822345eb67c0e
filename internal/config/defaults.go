package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultReadTimeout           = 15 * time.Second
	DefaultWriteTimeout          = 30 * time.Second
	DefaultRequestTimeout        = 30 * time.Second
	DefaultShutdownTimeout       = 10 * time.Second
	DefaultMaxBodySize     int64 = 1 << 20

	DefaultRateLimitRPS   = 20.0
	DefaultRateLimitBurst = 40

	DefaultMetricsNamespace = "m2pcalc"
	DefaultMetricsPath      = "/metrics"

	DefaultHeadPattern = "[Xe]"
	DefaultTailPattern = "[Pb]"
	DefaultTermination = "([Pb][C:1].[C:2][Xe])>>([C:1].[C:2])"
	DefaultMaxPasses   = 1

	DefaultBatchWorkers = 4

	DefaultMaxUniqueAttempts = 1000

	DefaultCacheMode        = "standalone"
	DefaultCacheAddr        = "localhost:6379"
	DefaultCachePoolSize    = 10
	DefaultCacheDialTimeout = 5 * time.Second
	DefaultCacheTTL         = 24 * time.Hour
	DefaultCachePrefix      = "m2pcalc:assign:"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields already set are left unchanged so explicit configuration always
// wins.  Booleans cannot be told apart from an explicit false and are
// defaulted by the loader instead.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.RateLimit.RequestsPerSecond == 0 {
		cfg.Server.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = DefaultRateLimitBurst
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Stereo ────────────────────────────────────────────────────────────────
	if cfg.Stereo.HeadPattern == "" {
		cfg.Stereo.HeadPattern = DefaultHeadPattern
	}
	if cfg.Stereo.TailPattern == "" {
		cfg.Stereo.TailPattern = DefaultTailPattern
	}
	if cfg.Stereo.Termination == "" {
		cfg.Stereo.Termination = DefaultTermination
	}
	if cfg.Stereo.MaxPasses == 0 {
		cfg.Stereo.MaxPasses = DefaultMaxPasses
	}

	// ── Batch / Tacticity ─────────────────────────────────────────────────────
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = DefaultBatchWorkers
	}
	if cfg.Tacticity.MaxUniqueAttempts == 0 {
		cfg.Tacticity.MaxUniqueAttempts = DefaultMaxUniqueAttempts
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.Mode == "" {
		cfg.Cache.Mode = DefaultCacheMode
	}
	if len(cfg.Cache.Addrs) == 0 {
		cfg.Cache.Addrs = []string{DefaultCacheAddr}
	}
	if cfg.Cache.PoolSize == 0 {
		cfg.Cache.PoolSize = DefaultCachePoolSize
	}
	if cfg.Cache.DialTimeout == 0 {
		cfg.Cache.DialTimeout = DefaultCacheDialTimeout
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = DefaultCachePrefix
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Default returns a Config with every default applied, as used when no
// configuration file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Metrics.Enabled = true
	cfg.Server.RateLimit.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
