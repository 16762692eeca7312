package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/i474232898/weather-client/internal/weather"
)

var lastLocationKey = []byte("last_location")

// BadgerLocationStore persists the most recent location fix.
type BadgerLocationStore struct {
	db *badger.DB
}

var _ weather.LocationStore = (*BadgerLocationStore)(nil)

// NewBadgerLocationStore opens a BadgerDB at dir. An empty dir opens an
// in-memory database.
func NewBadgerLocationStore(dir string) (*BadgerLocationStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &BadgerLocationStore{db: db}, nil
}

func (s *BadgerLocationStore) Close() error { return s.db.Close() }

// WriteLast overwrites the stored location.
func (s *BadgerLocationStore) WriteLast(ctx context.Context, c weather.Coordinate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lastLocationKey, raw)
	})
}

// ReadLast returns the stored location, or ErrNotFound if none was written.
func (s *BadgerLocationStore) ReadLast(ctx context.Context) (weather.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return weather.Coordinate{}, err
	}

	var c weather.Coordinate
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastLocationKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return weather.Coordinate{}, ErrNotFound
	}
	if err != nil {
		return weather.Coordinate{}, fmt.Errorf("read last location: %w", err)
	}
	return c, nil
}
