package location

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-client/internal/availability"
	"github.com/i474232898/weather-client/internal/weather"
)

func writeFix(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestFileSourceMissingFileIsDisabled(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "fix.json"), nil)

	_, err := src.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = src.LastKnown(context.Background())
	assert.ErrorIs(t, err, availability.ErrNoHistory)
}

func TestFileSourceLastKnownReadsCurrentFix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fix.json")
	writeFix(t, path, `{"lat": 52.52, "lon": 13.405}`)

	c, err := NewFileSource(path, nil).LastKnown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinate{Lat: 52.52, Lon: 13.405}, c)
}

func TestFileSourceRejectsOutOfRangeFix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fix.json")
	writeFix(t, path, `{"lat": 120, "lon": 13.405}`)

	_, err := NewFileSource(path, nil).LastKnown(context.Background())
	assert.Error(t, err)
}

func TestFileSourcePushesRewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fix.json")
	writeFix(t, path, `{"lat": 1, "lon": 1}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := NewFileSource(path, nil).Subscribe(ctx)
	require.NoError(t, err)

	writeFix(t, path, `{"lat": 48.8566, "lon": 2.3522}`)

	select {
	case c := <-ch:
		assert.Equal(t, weather.Coordinate{Lat: 48.8566, Lon: 2.3522}, c)
	case <-time.After(2 * time.Second):
		t.Fatal("no fix pushed after rewrite")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestNewDetectorFallsBackToHistory(t *testing.T) {
	feed := NewFeed()
	feed.Publish(weather.Coordinate{Lat: 10, Lon: 20})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDetector(feed, Config{InitialGrace: 10 * time.Millisecond, PollInterval: 5 * time.Millisecond})
	states := d.Observe(ctx)

	first := <-states
	assert.Equal(t, availability.KindInitial, first.Kind)

	select {
	case s := <-states:
		assert.Equal(t, availability.Available(weather.Coordinate{Lat: 10, Lon: 20}), s)
	case <-time.After(2 * time.Second):
		t.Fatal("no state after grace period")
	}
}
