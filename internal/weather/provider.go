package weather

import (
	"context"
)

// Provider abstracts a forecast data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	FetchForecast(ctx context.Context, req FetchRequest) (ForecastRecord, error)
}

// Store is the forecast cache contract. Records are keyed by city.
type Store interface {
	// Read returns ErrNotFound when nothing is cached for city.
	Read(ctx context.Context, city string) (ForecastRecord, error)
	// Replace discards every entry for city and stores record in one atomic unit.
	Replace(ctx context.Context, city string, record ForecastRecord) error
}

// LocationStore persists the single last known coordinate.
type LocationStore interface {
	// ReadLast returns ErrNotFound when no location was ever written.
	ReadLast(ctx context.Context) (Coordinate, error)
	WriteLast(ctx context.Context, c Coordinate) error
}

// Geocoder resolves a display city for a coordinate. It is best-effort:
// implementations return a placeholder instead of failing.
type Geocoder interface {
	ResolveCity(ctx context.Context, c Coordinate) string
}
