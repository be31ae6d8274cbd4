package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coxswain-app/shoreline/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "shoreline.db", cfg.DatabaseFile)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.FreshnessTTL)
	assert.Equal(t, "1.1.1.1:443", cfg.ProbeAddress)
	assert.Equal(t, 30*time.Second, cfg.ProbeInterval)
	assert.Equal(t, "0 4 * * *", cfg.CleanupSchedule)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.Debug)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SHORELINE_REMOTE_BASE_URL", "https://api.example.com/v1")
	t.Setenv("SHORELINE_API_TOKEN", "token-123")
	t.Setenv("SHORELINE_FRESHNESS_TTL", "1h")
	t.Setenv("SHORELINE_DEBUG", "true")

	cfg, err := config.NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.RemoteBaseURL)
	assert.Equal(t, "token-123", cfg.APIToken)
	assert.Equal(t, time.Hour, cfg.FreshnessTTL)
	assert.True(t, cfg.Debug)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
remoteBaseUrl: https://api.example.com/v1
dataDir: /var/lib/shoreline
probeInterval: 10s
logFormat: json
`), 0o600))

	cfg, err := config.NewLoader(config.WithConfigFile(path)).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.RemoteBaseURL)
	assert.Equal(t, "/var/lib/shoreline", cfg.DataDir)
	assert.Equal(t, 10*time.Second, cfg.ProbeInterval)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, filepath.Join("/var/lib/shoreline", "shoreline.db"), cfg.DatabasePath())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.NewLoader(config.WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))).Load()
	require.Error(t, err, "expected an explicitly named config file to be required")
}
