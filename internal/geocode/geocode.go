package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-client/internal/weather"
)

// ErrNoCity is returned when a lookup succeeds but names no city.
var ErrNoCity = errors.New("no city for coordinate")

// ReverseFunc resolves a coordinate to a city name.
type ReverseFunc func(ctx context.Context, c weather.Coordinate) (string, error)

// Resolver implements weather.Geocoder on top of a ReverseFunc. Lookups are
// memoized per ~1km cell; failures return the placeholder and are not cached.
type Resolver struct {
	reverse     ReverseFunc
	placeholder string
	logger      *slog.Logger

	mu    sync.Mutex
	cache map[cell]string
}

var _ weather.Geocoder = (*Resolver)(nil)

type cell struct{ lat, lon int64 }

func cellOf(c weather.Coordinate) cell {
	return cell{lat: int64(math.Round(c.Lat * 100)), lon: int64(math.Round(c.Lon * 100))}
}

// NewResolver creates a Resolver. A nil reverse always yields the placeholder.
func NewResolver(reverse ReverseFunc, placeholder string, logger *slog.Logger) *Resolver {
	if placeholder == "" {
		placeholder = weather.UnknownCity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		reverse:     reverse,
		placeholder: placeholder,
		logger:      logger.With("component", "geocode"),
		cache:       make(map[cell]string),
	}
}

// ResolveCity never fails: unresolved coordinates map to the placeholder.
func (r *Resolver) ResolveCity(ctx context.Context, c weather.Coordinate) string {
	if r.reverse == nil {
		return r.placeholder
	}

	key := cellOf(c)
	r.mu.Lock()
	city, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return city
	}

	city, err := r.reverse(ctx, c)
	city = strings.TrimSpace(city)
	if err == nil && city == "" {
		err = ErrNoCity
	}
	if err != nil {
		r.logger.Warn("reverse geocoding failed", "coordinate", c.String(), "error", err)
		return r.placeholder
	}

	r.mu.Lock()
	r.cache[key] = city
	r.mu.Unlock()
	return city
}

// Google returns a ReverseFunc backed by the Google Geocoding API.
// The underlying client is blocking, so the lookup runs in its own goroutine
// and is abandoned when ctx ends.
func Google(apiKey string) ReverseFunc {
	geocoder.ApiKey = apiKey
	return func(ctx context.Context, c weather.Coordinate) (string, error) {
		type result struct {
			city string
			err  error
		}
		done := make(chan result, 1)
		go func() {
			addrs, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: c.Lat, Longitude: c.Lon})
			if err != nil {
				done <- result{err: fmt.Errorf("google reverse geocode: %w", err)}
				return
			}
			for _, a := range addrs {
				if a.City != "" {
					done <- result{city: a.City}
					return
				}
			}
			done <- result{err: ErrNoCity}
		}()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res := <-done:
			return res.city, res.err
		}
	}
}
