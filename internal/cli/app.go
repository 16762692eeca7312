package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/weather-client/internal/config"
	"github.com/i474232898/weather-client/internal/geocode"
	"github.com/i474232898/weather-client/internal/metrics"
	"github.com/i474232898/weather-client/internal/store"
	"github.com/i474232898/weather-client/internal/weather"
	"github.com/i474232898/weather-client/internal/weather/providers"
)

// components are the collaborators shared by every command.
type components struct {
	service   *weather.Service
	locations weather.LocationStore
	metrics   *metrics.Recorder
	closers   []io.Closer
}

func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	return errors.Join(errs...)
}

// buildComponents wires the fetch-cycle service and its stores. reg may be
// nil for one-shot commands.
func buildComponents(cfg *config.AppConfig, logger *slog.Logger, reg prometheus.Registerer) (*components, error) {
	c := &components{}
	if reg != nil {
		c.metrics = metrics.New(reg)
	}

	// Shared HTTP client for outbound provider calls.
	httpCfg := providers.DefaultHTTPClientConfig(&http.Client{Timeout: cfg.Provider.HTTPTimeout})
	provider, err := providers.New(cfg.Provider.Name, httpCfg, providers.Keys{
		OpenWeather: cfg.Provider.OpenWeatherAPIKey,
		WeatherAPI:  cfg.Provider.WeatherAPIKey,
	})
	if err != nil {
		return nil, err
	}

	var cache weather.Store
	switch cfg.Cache.Driver {
	case "memory":
		cache = store.NewMemoryStore()
	default:
		s, err := store.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("open forecast cache: %w", err)
		}
		c.closers = append(c.closers, s)
		cache = s
	}

	locs, err := store.NewBadgerLocationStore(cfg.Location.DBPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("open location store: %w", err)
	}
	c.closers = append(c.closers, locs)
	c.locations = locs

	var reverse geocode.ReverseFunc
	if cfg.Provider.GeocoderAPIKey != "" {
		reverse = geocode.Google(cfg.Provider.GeocoderAPIKey)
	} else {
		logger.Warn("GEOCODER_API_KEY not set; every location is cached as " + weather.UnknownCity)
	}

	c.service = weather.NewService(weather.ServiceDeps{
		Store:    cache,
		Provider: provider,
		Geocoder: geocode.NewResolver(reverse, weather.UnknownCity, logger),
		Logger:   logger,
		Metrics:  c.metrics,
	}, weather.ServiceConfig{
		Threshold: cfg.Forecast.Threshold,
		Days:      cfg.Forecast.Days,
		Units:     cfg.Forecast.Units,
		Lang:      cfg.Forecast.Lang,
	})
	return c, nil
}
