// Package location provides the location instance of the availability
// detector and the push sources that feed it.
package location

import (
	"log/slog"
	"time"

	"github.com/i474232898/weather-client/internal/availability"
	"github.com/i474232898/weather-client/internal/metrics"
	"github.com/i474232898/weather-client/internal/weather"
)

// Defaults match how sparse fixes are on a phone: the first staleness check
// waits 3s, and 15s without a fix means the location is gone.
const (
	DefaultTimeout       = 15 * time.Second
	DefaultInitialGrace  = 3 * time.Second
	DefaultPollInterval  = time.Second
	DefaultRetryInterval = 500 * time.Millisecond
)

// State is a location availability state.
type State = availability.State[weather.Coordinate]

// Detector watches a location source.
type Detector = availability.Detector[weather.Coordinate]

// Feed is the in-process location source platform bridges publish fixes to.
type Feed = availability.Feed[weather.Coordinate]

// NewFeed returns an enabled, empty location feed.
func NewFeed() *Feed {
	return availability.NewFeed[weather.Coordinate]()
}

// Config tunes the location detector. Zero fields take the defaults.
type Config struct {
	Timeout       time.Duration
	InitialGrace  time.Duration
	PollInterval  time.Duration
	RetryInterval time.Duration
	Logger        *slog.Logger
	Metrics       *metrics.Recorder
}

// NewDetector builds the dual-source location detector: every fix is
// relayed, and a watchdog reports Unavailable once fixes stop arriving.
func NewDetector(src availability.Source[weather.Coordinate], cfg Config) *Detector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.InitialGrace <= 0 {
		cfg.InitialGrace = DefaultInitialGrace
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	return availability.New(src, availability.Config[weather.Coordinate]{
		Name:          "location",
		Timeout:       cfg.Timeout,
		InitialGrace:  cfg.InitialGrace,
		PollInterval:  cfg.PollInterval,
		RetryInterval: cfg.RetryInterval,
		UseHistory:    true,
		Logger:        cfg.Logger,
		Metrics:       cfg.Metrics,
	})
}
