package store

import (
	"context"
	"sync"

	"github.com/i474232898/weather-client/internal/weather"
)

// ErrNotFound is returned when no data is available for a given city.
var ErrNotFound = weather.ErrNotFound

// MemoryStore is a concurrency-safe in-memory forecast cache.
type MemoryStore struct {
	mu sync.RWMutex

	// key: city, value: the city's only record
	data map[string]weather.ForecastRecord
}

var _ weather.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore. Records never expire; age is
// judged by the freshness policy, not the store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]weather.ForecastRecord),
	}
}

// Replace swaps the city's record under the write lock, so readers see
// either the old record or the new one and never a mix.
func (s *MemoryStore) Replace(ctx context.Context, city string, record weather.ForecastRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, city)
	s.data[city] = record.Clone()
	return nil
}

// Read returns the record for city.
func (s *MemoryStore) Read(ctx context.Context, city string) (weather.ForecastRecord, error) {
	if err := ctx.Err(); err != nil {
		return weather.ForecastRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[city]
	if !ok || len(rec.Days) == 0 {
		return weather.ForecastRecord{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// Cities lists the cached cities.
func (s *MemoryStore) Cities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.data))
	for city := range s.data {
		out = append(out, city)
	}
	return out
}
