package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "M2P"

// newViper builds a pre-configured Viper instance: YAML file type, M2P_ env
// prefix, automatic env binding, and a key replacer that maps "." → "_" so
// that nested keys like "stereo.max_passes" resolve to "M2P_STEREO_MAX_PASSES".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

// setDefaults registers every key with viper.  Unmarshal only consults the
// environment for keys viper already knows.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("log.error_output_paths", []string{"stderr"})

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	v.SetDefault("server.rate_limit.requests_per_second", d.Server.RateLimit.RequestsPerSecond)
	v.SetDefault("server.rate_limit.burst", d.Server.RateLimit.Burst)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("metrics.enable_go_metrics", false)
	v.SetDefault("metrics.enable_process_metrics", false)

	v.SetDefault("stereo.head_pattern", d.Stereo.HeadPattern)
	v.SetDefault("stereo.tail_pattern", d.Stereo.TailPattern)
	v.SetDefault("stereo.termination", d.Stereo.Termination)
	v.SetDefault("stereo.max_passes", d.Stereo.MaxPasses)
	v.SetDefault("stereo.restrict_to_targets", false)

	v.SetDefault("batch.workers", d.Batch.Workers)
	v.SetDefault("tacticity.max_unique_attempts", d.Tacticity.MaxUniqueAttempts)
	v.SetDefault("tacticity.seed", int64(0))

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.mode", d.Cache.Mode)
	v.SetDefault("cache.addrs", d.Cache.Addrs)
	v.SetDefault("cache.master_name", "")
	v.SetDefault("cache.username", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.pool_size", d.Cache.PoolSize)
	v.SetDefault("cache.dial_timeout", d.Cache.DialTimeout)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.prefix", d.Cache.Prefix)
}

// Load reads the YAML file at configPath, merges any M2P_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.  An empty configPath is the same as LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from defaults and M2P_* environment variables
// alone.
//
//	M2P_<SECTION>_<FIELD>   e.g.  M2P_SERVER_PORT, M2P_STEREO_MAX_PASSES
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed
// Config whenever the file changes on disk.  Invalid revisions are logged
// and skipped.  Watch is non-blocking; viper owns the watcher goroutine.
func Watch(configPath string, logger logging.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			logger.Warn("ignoring invalid configuration change",
				logging.String("file", e.Name), logging.Err(err))
			return
		}
		logger.Info("configuration reloaded", logging.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
