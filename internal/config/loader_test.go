package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymerlab/m2pcalc/internal/testutil"
)

const validConfigYAML = `
log:
  level: debug
  format: console
server:
  port: 9090
  mode: test
  read_timeout: 5s
  rate_limit:
    enabled: false
metrics:
  namespace: poly
stereo:
  head_pattern: "[Xe]"
  tail_pattern: "[Pb]"
  max_passes: 2
  restrict_to_targets: true
batch:
  workers: 8
tacticity:
  seed: 11
cache:
  enabled: true
  addrs: ["redis-0:6379", "redis-1:6379"]
  mode: cluster
  ttl: 1h
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout)
	assert.False(t, cfg.Server.RateLimit.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "poly", cfg.Metrics.Namespace)
	assert.Equal(t, 2, cfg.Stereo.MaxPasses)
	assert.True(t, cfg.Stereo.RestrictToTargets)
	assert.Equal(t, DefaultTermination, cfg.Stereo.Termination)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, int64(11), cfg.Tacticity.Seed)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "cluster", cfg.Cache.Mode)
	assert.Equal(t, []string{"redis-0:6379", "redis-1:6379"}, cfg.Cache.Addrs)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, DefaultCachePrefix, cfg.Cache.Prefix)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("M2P_SERVER_PORT", "7070")
	t.Setenv("M2P_STEREO_MAX_PASSES", "4")
	t.Setenv("M2P_STEREO_HEAD_PATTERN", "N")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Stereo.MaxPasses)
	assert.Equal(t, "N", cfg.Stereo.HeadPattern)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("M2P_BATCH_WORKERS", "3")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Batch.Workers)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Batch.Workers)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(createTempConfigFile(t, "server: [unclosed"))
	assert.Error(t, err)

	_, err = Load(createTempConfigFile(t, "server:\n  mode: prod\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestWatch(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	logger := testutil.NewMockLogger()

	var passes atomic.Int32
	require.NoError(t, Watch(path, logger, func(cfg *Config) {
		passes.Store(int32(cfg.Stereo.MaxPasses))
	}))

	require.NoError(t, os.WriteFile(path, []byte("stereo:\n  max_passes: 5\n"), 0o644))
	assert.Eventually(t, func() bool { return passes.Load() == 5 }, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_MissingFile(t *testing.T) {
	assert.Error(t, Watch(filepath.Join(t.TempDir(), "missing.yaml"), nil, func(*Config) {}))
}
