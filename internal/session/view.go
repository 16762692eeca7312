package session

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/weather-client/internal/weather"
)

// ViewKind is the screen-facing state of a session.
type ViewKind int

const (
	KindLoading ViewKind = iota
	KindSuccess
	KindError
	KindNoLocation
)

func (k ViewKind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindNoLocation:
		return "no_location"
	default:
		return "unknown"
	}
}

func (k ViewKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ViewState is what a rendering layer draws.
type ViewState struct {
	Kind     ViewKind                `json:"kind"`
	Forecast *weather.ForecastRecord `json:"forecast,omitempty"`
	// Source is set on Success only.
	Source weather.Source `json:"source,omitempty"`
	// Message and Class are set on Error only.
	Message   string             `json:"message,omitempty"`
	Class     weather.ErrorClass `json:"class,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func Loading() ViewState { return ViewState{Kind: KindLoading} }

func NoLocation() ViewState { return ViewState{Kind: KindNoLocation} }

func Success(rec weather.ForecastRecord, src weather.Source) ViewState {
	rec = rec.Clone()
	return ViewState{Kind: KindSuccess, Forecast: &rec, Source: src}
}

func Failure(err error) ViewState {
	class := weather.Classify(err)
	msg := MessageFor(class)
	switch class {
	case weather.ClassTransport, weather.ClassMalformed, weather.ClassUnexpected:
		if err != nil {
			msg += " (" + err.Error() + ")"
		}
	}
	return ViewState{Kind: KindError, Message: msg, Class: class}
}

// MessageFor is the user-facing text for an error class.
func MessageFor(class weather.ErrorClass) string {
	switch class {
	case weather.ClassTransport:
		return "Network error: could not reach the weather service"
	case weather.ClassUnauthorized:
		return "The weather service rejected the request"
	case weather.ClassMalformed:
		return "I/O error: could not read the forecast"
	case weather.ClassNoData:
		return "No forecast data available"
	case weather.ClassOffline:
		return "No network and no cache"
	default:
		return "Unexpected error"
	}
}

// Screen holds the RetrievalViewState of one session. Only the orchestrator
// writes it; any number of rendering layers may read or subscribe.
type Screen struct {
	mu    sync.Mutex
	state ViewState
	subs  map[chan ViewState]struct{}
	now   func() time.Time
}

// NewScreen starts in Loading.
func NewScreen() *Screen {
	s := &Screen{subs: make(map[chan ViewState]struct{}), now: time.Now}
	s.state = Loading()
	s.state.UpdatedAt = s.now()
	return s
}

// Current returns the displayed state.
func (s *Screen) Current() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe delivers the current state and then every later one. Slow
// readers only ever see the latest state. The channel closes with ctx.
func (s *Screen) Subscribe(ctx context.Context) <-chan ViewState {
	ch := make(chan ViewState, 1)

	s.mu.Lock()
	ch <- s.state
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *Screen) set(v ViewState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v.UpdatedAt = s.now()
	s.state = v
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
