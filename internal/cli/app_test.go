package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-client/internal/config"
	"github.com/i474232898/weather-client/internal/logging"
	"github.com/i474232898/weather-client/internal/weather"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		Provider: config.ProviderConfig{Name: "openmeteo", HTTPTimeout: time.Second},
		Forecast: config.ForecastConfig{Threshold: 15 * time.Minute, Days: 7, Units: "metric", Lang: "en"},
		Location: config.LocationConfig{DBPath: ""},
		Cache:    config.CacheConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "cache.db")},
		LogLevel: "error",
	}
}

func TestBuildComponents(t *testing.T) {
	cfg := testConfig(t)
	comps, err := buildComponents(cfg, logging.New(cfg.LogLevel), prometheus.NewRegistry())
	require.NoError(t, err)
	defer func() { assert.NoError(t, comps.Close()) }()

	require.NotNil(t, comps.service)
	require.NotNil(t, comps.metrics)

	ctx := context.Background()
	require.NoError(t, comps.locations.WriteLast(ctx, weather.Coordinate{Lat: 1, Lon: 2}))
	got, err := comps.locations.ReadLast(ctx)
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinate{Lat: 1, Lon: 2}, got)

	// offline with an empty cache resolves without touching the network
	_, out := comps.service.Cycle(ctx, weather.Coordinate{Lat: 1, Lon: 2}, false, false)
	assert.ErrorIs(t, out.Err, weather.ErrOffline)
}

func TestBuildComponentsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Name = "darksky"
	_, err := buildComponents(cfg, logging.New(cfg.LogLevel), nil)
	assert.Error(t, err)
}

func TestServeRejectsUnknownNetworkSourceBeforeOpeningStores(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("WEATHER_CLIENT_CONFIG", "")

	cmd := &cobra.Command{}
	cmd.Flags().String("network-source", "carrier-pigeon", "")

	err := serve(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no cache or location store may be created")
}
