package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Default(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"rate", func(c *Config) { c.Server.RateLimit.RequestsPerSecond = -1 }, "requests_per_second"},
		{"burst", func(c *Config) { c.Server.RateLimit.Burst = 0 }, "burst"},
		{"namespace", func(c *Config) { c.Metrics.Namespace = "" }, "metrics.namespace"},
		{"head", func(c *Config) { c.Stereo.HeadPattern = "" }, "head_pattern"},
		{"passes", func(c *Config) { c.Stereo.MaxPasses = 0 }, "max_passes"},
		{"workers", func(c *Config) { c.Batch.Workers = 0 }, "batch.workers"},
		{"attempts", func(c *Config) { c.Tacticity.MaxUniqueAttempts = 0 }, "max_unique_attempts"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "text" }, "log.format"},
		{"cache mode", func(c *Config) { c.Cache.Enabled = true; c.Cache.Mode = "ring" }, "cache.mode"},
		{"cache addrs", func(c *Config) { c.Cache.Enabled = true; c.Cache.Addrs = nil }, "cache.addrs"},
		{"cache sentinel", func(c *Config) { c.Cache.Enabled = true; c.Cache.Mode = "sentinel" }, "master_name"},
		{"cache ttl", func(c *Config) { c.Cache.Enabled = true; c.Cache.TTL = 0 }, "cache.ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_RateLimitDisabledSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Server.RateLimit.Enabled = false
	cfg.Server.RateLimit.Burst = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CacheDisabledSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Cache.Mode = "ring"
	cfg.Cache.TTL = 0
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Cache.Enabled = true
	assert.NoError(t, cfg.Validate())
}
