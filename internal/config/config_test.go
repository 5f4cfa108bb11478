package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.behance.net", cfg.Platform.BaseURL)
	assert.Equal(t, "typeahead_search_direction", cfg.Platform.TrackingSource)
	assert.Equal(t, "graphic designer", cfg.Harvest.Keyword)
	assert.Equal(t, 5, cfg.Harvest.MaxPages)
	assert.Equal(t, 50, cfg.Harvest.MaxProfiles)
	assert.Equal(t, 16, cfg.Harvest.Concurrency)
	assert.Equal(t, 20, cfg.Harvest.RequestTimeoutSecs)
	assert.InDelta(t, 1.0, cfg.Rate.RequestsPerSec, 0.001)
	assert.Equal(t, 1, cfg.Rate.Burst)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 500, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, 8000, cfg.Retry.MaxBackoffMs)
	assert.InDelta(t, 2.0, cfg.Retry.Multiplier, 0.001)
	assert.InDelta(t, 0.25, cfg.Retry.Jitter, 0.001)
	assert.Equal(t, 5, cfg.Breaker.Threshold)
	assert.Equal(t, 30, cfg.Breaker.CooldownSecs)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "harvest.db", cfg.Store.DSN)
	assert.Equal(t, "data", cfg.Export.OutputDir)
	assert.Equal(t, "json", cfg.Export.Formats)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 0.5, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 24, cfg.Monitoring.LookbackHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
harvest:
  keyword: illustrator
  max_profiles: 10
store:
  driver: postgres
  dsn: postgres://localhost/harvest
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "illustrator", cfg.Harvest.Keyword)
	assert.Equal(t, 10, cfg.Harvest.MaxProfiles)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Harvest.MaxPages)
	assert.Equal(t, 16, cfg.Harvest.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HARVEST_STORE_DRIVER", "postgres")
	t.Setenv("HARVEST_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("HARVEST_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
harvest:
  concurrency: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency")
}

// validDefaults mirrors the Load defaults for direct validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Platform.BaseURL = "https://www.behance.net"
	cfg.Harvest.Keyword = "graphic designer"
	cfg.Harvest.MaxPages = 5
	cfg.Harvest.MaxProfiles = 50
	cfg.Harvest.Concurrency = 16
	cfg.Rate.RequestsPerSec = 1.0
	cfg.Retry.MaxRetries = 3
	return cfg
}

func TestValidateAccepts(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty base url", func(c *Config) { c.Platform.BaseURL = " " }, "base_url"},
		{"empty keyword", func(c *Config) { c.Harvest.Keyword = "" }, "keyword"},
		{"zero concurrency", func(c *Config) { c.Harvest.Concurrency = 0 }, "concurrency"},
		{"negative max profiles", func(c *Config) { c.Harvest.MaxProfiles = -1 }, "max_profiles"},
		{"zero max pages", func(c *Config) { c.Harvest.MaxPages = 0 }, "max_pages"},
		{"zero rate", func(c *Config) { c.Rate.RequestsPerSec = 0 }, "requests_per_sec"},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, "max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
