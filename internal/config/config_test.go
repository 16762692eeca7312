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
	t.Chdir(t.TempDir())
	t.Setenv(configPathEnv, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openweather", cfg.Provider.Name)
	assert.Equal(t, 15*time.Minute, cfg.Forecast.Threshold)
	assert.Equal(t, 7, cfg.Forecast.Days)
	assert.Equal(t, "metric", cfg.Forecast.Units)
	assert.Equal(t, "en", cfg.Forecast.Lang)
	assert.Equal(t, 15*time.Second, cfg.Location.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Location.InitialGrace)
	assert.Equal(t, time.Second, cfg.Location.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Location.RetryInterval)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  name: openmeteo
forecast:
  threshold: 30m
  days: 5
cache:
  driver: memory
port: "9090"
`), 0o644))

	t.Setenv(configPathEnv, path)
	t.Setenv("FORECAST_DAYS", "3")
	t.Setenv("LOCATION_TIMEOUT", "20s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openmeteo", cfg.Provider.Name)
	assert.Equal(t, 30*time.Minute, cfg.Forecast.Threshold)
	assert.Equal(t, 3, cfg.Forecast.Days)
	assert.Equal(t, 20*time.Second, cfg.Location.Timeout)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(configPathEnv, "")

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("FRESHNESS_THRESHOLD", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "FRESHNESS_THRESHOLD")
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv("WEATHER_PROVIDER", "darksky")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("too many days", func(t *testing.T) {
		t.Setenv("FORECAST_DAYS", "30")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing config file", func(t *testing.T) {
		t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})
}
