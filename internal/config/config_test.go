package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.gbif.org/v1", cfg.GBIF.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.GBIF.Timeout)
	assert.Equal(t, 3, cfg.GBIF.RetryAttempts)
	assert.Equal(t, time.Second, cfg.GBIF.RetryDelay)
	assert.Equal(t, 60, cfg.GBIF.RateLimitPerMin)
	assert.Equal(t, 5, cfg.GBIF.MaxConcurrent)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, int64(50<<20), cfg.Cache.MaxBytes)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)

	assert.Equal(t, 250<<10, cfg.Response.MaxBytes)
	assert.Equal(t, 200<<10, cfg.Response.WarnBytes)
	assert.True(t, cfg.Response.Truncation)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
gbif:
  base_url: https://api.gbif-uat.org/v1
  rate_limit_per_min: 30
cache:
  enabled: false
response:
  max_bytes: 131072
  warn_bytes: 102400
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.gbif-uat.org/v1", cfg.GBIF.BaseURL)
	assert.Equal(t, 30, cfg.GBIF.RateLimitPerMin)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 131072, cfg.Response.MaxBytes)

	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.GBIF.Timeout)
	assert.Equal(t, 5, cfg.GBIF.MaxConcurrent)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GBIFMCP_GBIF_RATE_LIMIT_PER_MIN", "10")
	t.Setenv("GBIFMCP_GBIF_USERNAME", "alice")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.GBIF.RateLimitPerMin)
	assert.Equal(t, "alice", cfg.GBIF.Username)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty base URL", func(c *Config) { c.GBIF.BaseURL = "" }, "base_url"},
		{"zero timeout", func(c *Config) { c.GBIF.Timeout = 0 }, "timeout"},
		{"zero rate limit", func(c *Config) { c.GBIF.RateLimitPerMin = 0 }, "rate_limit"},
		{"zero concurrency", func(c *Config) { c.GBIF.MaxConcurrent = 0 }, "max_concurrent"},
		{"cache enabled without ttl", func(c *Config) { c.Cache.TTL = 0 }, "cache"},
		{"zero response budget", func(c *Config) { c.Response.MaxBytes = 0 }, "response.max_bytes"},
		{"warn above max", func(c *Config) { c.Response.WarnBytes = c.Response.MaxBytes + 1 }, "warn_bytes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateCacheDisabledSkipsCacheChecks(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Cache.Enabled = false
	cfg.Cache.MaxBytes = 0
	cfg.Cache.TTL = 0
	assert.NoError(t, cfg.Validate())
}
