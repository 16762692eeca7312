// Package network provides connectivity statuses, the connectivity push
// sources and the network instance of the availability detector.
package network

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/i474232898/weather-client/internal/availability"
	"github.com/i474232898/weather-client/internal/metrics"
)

// Status mirrors the callbacks a platform connectivity manager reports.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusLosing      Status = "losing"
	StatusLost        Status = "lost"
	StatusUnavailable Status = "unavailable"
)

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusAvailable, StatusLosing, StatusLost, StatusUnavailable:
		return st, nil
	default:
		return "", fmt.Errorf("unknown network status %q", s)
	}
}

// IsUp reports whether requests can be attempted. Losing is already down.
func (s Status) IsUp() bool { return s == StatusAvailable }

type State = availability.State[Status]

type Detector = availability.Detector[Status]

type Feed = availability.Feed[Status]

func NewFeed() *Feed {
	return availability.NewFeed[Status]()
}

// NewDetector builds the connectivity detector. The platform reports loss
// promptly, so there is no watchdog: values are relayed and de-duplicated.
func NewDetector(src availability.Source[Status], logger *slog.Logger, rec *metrics.Recorder) *Detector {
	return availability.New(src, availability.Config[Status]{
		Name:        "network",
		IsAvailable: Status.IsUp,
		Logger:      logger,
		Metrics:     rec,
	})
}
