package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-client/internal/metrics"
)

// UnknownCity is the cache key used when reverse geocoding fails.
const UnknownCity = "Unknown city"

// ServiceConfig tunes a fetch cycle.
type ServiceConfig struct {
	Threshold   time.Duration
	Days        int
	Units       string
	Lang        string
	UnknownCity string
}

// DefaultServiceConfig mirrors the request the mobile client always sent.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Threshold:   DefaultFreshnessThreshold,
		Days:        7,
		Units:       "metric",
		Lang:        "en",
		UnknownCity: UnknownCity,
	}
}

// ServiceDeps wires the collaborators of a fetch cycle.
type ServiceDeps struct {
	Store    Store
	Provider Provider
	Geocoder Geocoder
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs fetch cycles: geocode, read cache, decide, maybe fetch, replace.
type Service struct {
	store    Store
	provider Provider
	geocoder Geocoder
	cfg      ServiceConfig
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	// at most one in-flight network fetch per city
	flights singleflight.Group
}

// NewService creates a new Service.
func NewService(deps ServiceDeps, cfg ServiceConfig) *Service {
	def := DefaultServiceConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Days <= 0 {
		cfg.Days = def.Days
	}
	if cfg.Units == "" {
		cfg.Units = def.Units
	}
	if cfg.Lang == "" {
		cfg.Lang = def.Lang
	}
	if cfg.UnknownCity == "" {
		cfg.UnknownCity = def.UnknownCity
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:    deps.Store,
		provider: deps.Provider,
		geocoder: deps.Geocoder,
		cfg:      cfg,
		logger:   logger.With("component", "forecast"),
		metrics:  deps.Metrics,
		now:      now,
	}
}

// Plan is the first half of a fetch cycle: everything up to the policy decision.
type Plan struct {
	Coordinate Coordinate
	City       string
	Cached     *ForecastRecord
	Decision   Decision
	Force      bool
}

// Source tells where a successful outcome's record came from.
type Source string

const (
	FromCache      Source = "cache"
	FromNetwork    Source = "network"
	FromStaleCache Source = "stale_cache" // network failed after the policy chose to fetch
)

// Outcome is the resolution of a fetch cycle. Exactly one of Record or Err is meaningful.
type Outcome struct {
	Record ForecastRecord
	Source Source
	Err    error
	// FetchErr keeps the swallowed network error when the cache won.
	FetchErr error
}

// Plan resolves the city, reads the cache and applies the freshness policy.
func (s *Service) Plan(ctx context.Context, c Coordinate, networkUp, force bool) Plan {
	city := s.resolveCity(ctx, c)

	var cached *ForecastRecord
	rec, err := s.store.Read(ctx, city)
	switch {
	case err == nil && len(rec.Days) > 0:
		cached = &rec
	case err == nil, errors.Is(err, ErrNotFound):
	default:
		s.logger.Warn("cache read failed; treating as miss", "city", city, "error", err)
	}

	d := Decide(cached, s.cfg.Threshold, networkUp, force, s.now())
	s.metrics.Decision(d.Action.String())
	s.logger.Debug("freshness decision", "city", city, "action", d.Action.String(), "networkUp", networkUp, "force", force)

	return Plan{
		Coordinate: c,
		City:       city,
		Cached:     cached,
		Decision:   d,
		Force:      force,
	}
}

// Execute carries out a plan's decision.
func (s *Service) Execute(ctx context.Context, p Plan) Outcome {
	switch p.Decision.Action {
	case UseCache:
		if p.Cached == nil {
			return Outcome{Err: fmt.Errorf("use cache decided without cached record for %s", p.City)}
		}
		return Outcome{Record: p.Cached.Clone(), Source: FromCache}
	case Fail:
		return Outcome{Err: ErrOffline}
	}

	rec, err := s.fetchAndStore(ctx, p)
	if err == nil {
		return Outcome{Record: rec, Source: FromNetwork}
	}

	if p.Cached != nil && p.Decision.Action == FetchNetworkFallbackToCache {
		s.logger.Warn("network fetch failed; serving cached forecast",
			"city", p.City, "class", string(Classify(err)), "error", err)
		return Outcome{Record: p.Cached.Clone(), Source: FromStaleCache, FetchErr: err}
	}

	s.logger.Error("network fetch failed", "city", p.City, "class", string(Classify(err)), "error", err)
	return Outcome{Err: err}
}

// Cycle runs Plan and Execute back to back.
func (s *Service) Cycle(ctx context.Context, c Coordinate, networkUp, force bool) (Plan, Outcome) {
	p := s.Plan(ctx, c, networkUp, force)
	return p, s.Execute(ctx, p)
}

func (s *Service) fetchAndStore(ctx context.Context, p Plan) (ForecastRecord, error) {
	if s.provider == nil {
		return ForecastRecord{}, errors.New("no forecast provider configured")
	}

	v, err, shared := s.flights.Do(p.City, func() (interface{}, error) {
		req := FetchRequest{
			Coordinate: p.Coordinate,
			Days:       s.cfg.Days,
			Units:      s.cfg.Units,
			Lang:       s.cfg.Lang,
		}

		start := s.now()
		rec, err := s.provider.FetchForecast(ctx, req)
		s.metrics.ProviderFetch(s.provider.Name(), s.now().Sub(start), err)
		if err != nil {
			return nil, err
		}
		if len(rec.Days) == 0 {
			return nil, ErrNoData
		}

		rec.FetchedAt = s.now().UTC()
		if rec.City == "" {
			rec.City = p.City
		}

		// A failed write never fails the cycle; the fresh record is still served.
		werr := s.store.Replace(ctx, p.City, rec)
		s.metrics.CacheWrite(werr)
		if werr != nil {
			s.logger.Warn("cache replace failed", "city", p.City, "error", werr)
		}
		return rec, nil
	})
	if err != nil {
		return ForecastRecord{}, err
	}
	if shared {
		s.logger.Debug("joined in-flight fetch", "city", p.City)
	}
	return v.(ForecastRecord).Clone(), nil
}

func (s *Service) resolveCity(ctx context.Context, c Coordinate) string {
	if s.geocoder == nil {
		return s.cfg.UnknownCity
	}
	name := strings.TrimSpace(s.geocoder.ResolveCity(ctx, c))
	if name == "" {
		return s.cfg.UnknownCity
	}
	return name
}
