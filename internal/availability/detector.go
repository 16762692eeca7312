package availability

import (
	"context"
	"log/slog"
	"time"

	"github.com/i474232898/weather-client/internal/metrics"
)

const (
	DefaultPollInterval  = time.Second
	DefaultRetryInterval = 500 * time.Millisecond
)

// Config tunes a Detector.
type Config[T comparable] struct {
	// Name labels logs and metrics, e.g. "location" or "network".
	Name string

	// Timeout is the silence after which Unavailable is reported.
	// Zero disables the watchdog: the detector only relays and de-duplicates.
	Timeout time.Duration
	// InitialGrace delays the first staleness check while the source warms up.
	InitialGrace time.Duration
	PollInterval time.Duration
	// RetryInterval paces re-registration after Subscribe fails.
	RetryInterval time.Duration

	// UseHistory asks a HistorySource for one past value when nothing was
	// pushed during the grace period.
	UseHistory bool

	// IsAvailable classifies a pushed value. Nil treats every value as available.
	IsAvailable func(T) bool

	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Detector merges a push producer and a staleness watchdog into one stream.
type Detector[T comparable] struct {
	source Source[T]
	cfg    Config[T]
	logger *slog.Logger
}

// New creates a Detector over source.
func New[T comparable](source Source[T], cfg Config[T]) *Detector[T] {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.InitialGrace < 0 {
		cfg.InitialGrace = 0
	}
	if cfg.Name == "" {
		cfg.Name = "availability"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Detector[T]{
		source: source,
		cfg:    cfg,
		logger: logger.With("component", cfg.Name+"-detector"),
	}
}

// pushMsg is a value (or a registration failure) from the push producer.
type pushMsg[T any] struct {
	value T
	err   error
}

// Observe starts a new subscription. The stream begins with Initial, never
// repeats a state twice in a row and is closed once ctx is cancelled.
// Each call registers with the source independently.
func (d *Detector[T]) Observe(ctx context.Context) <-chan State[T] {
	out := make(chan State[T])
	go d.run(ctx, out)
	return out
}

// run is the merge point. It alone owns lastSeen and the last emitted state.
func (d *Detector[T]) run(ctx context.Context, out chan<- State[T]) {
	defer close(out)

	raw := make(chan pushMsg[T])
	go d.push(ctx, raw)

	last := Initial[T]()
	emit := func(s State[T]) bool {
		if s == last {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		select {
		case out <- s:
			last = s
			d.cfg.Metrics.Transition(d.cfg.Name, s.Kind.String())
			d.logger.Debug("state changed", "state", s.String())
			return true
		case <-ctx.Done():
			return false
		}
	}

	select {
	case out <- last:
	case <-ctx.Done():
		return
	}

	var (
		lastSeen time.Time
		graceC   <-chan time.Time
		tickC    <-chan time.Time
		historyC chan pushMsg[T]
	)

	if d.cfg.Timeout > 0 {
		grace := time.NewTimer(d.cfg.InitialGrace)
		defer grace.Stop()
		graceC = grace.C
	}
	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case m := <-raw:
			if m.err != nil {
				if !emit(Unavailable[T]()) {
					return
				}
				continue
			}
			lastSeen = time.Now()
			if !emit(d.classify(m.value)) {
				return
			}

		case <-graceC:
			graceC = nil
			ticker = time.NewTicker(d.cfg.PollInterval)
			tickC = ticker.C

			if !lastSeen.IsZero() {
				continue
			}
			if hs, ok := d.source.(HistorySource[T]); ok && d.cfg.UseHistory {
				historyC = make(chan pushMsg[T], 1)
				go func() {
					v, err := hs.LastKnown(ctx)
					historyC <- pushMsg[T]{value: v, err: err}
				}()
				continue
			}
			if !emit(Unavailable[T]()) {
				return
			}

		case m := <-historyC:
			historyC = nil
			if !lastSeen.IsZero() {
				// a live value arrived while the lookup was running
				continue
			}
			if m.err != nil {
				d.logger.Debug("no historical value", "error", m.err)
				if !emit(Unavailable[T]()) {
					return
				}
				continue
			}
			lastSeen = time.Now()
			if !emit(d.classify(m.value)) {
				return
			}

		case <-tickC:
			if historyC != nil {
				continue
			}
			if lastSeen.IsZero() || time.Since(lastSeen) >= d.cfg.Timeout {
				if !emit(Unavailable[T]()) {
					return
				}
			}
		}
	}
}

// push relays source values into raw, re-registering when needed. There
// is never more than one live registration per subscription.
func (d *Detector[T]) push(ctx context.Context, raw chan<- pushMsg[T]) {
	send := func(m pushMsg[T]) bool {
		select {
		case raw <- m:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		ch, err := d.source.Subscribe(ctx)
		if err != nil {
			d.logger.Debug("registration failed; retrying", "error", err, "retry", d.cfg.RetryInterval)
			if !send(pushMsg[T]{err: err}) || !sleep(ctx, d.cfg.RetryInterval) {
				return
			}
			continue
		}

		for v := range ch {
			if !send(pushMsg[T]{value: v}) {
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		d.logger.Info("source closed registration; re-registering")
		if !sleep(ctx, d.cfg.RetryInterval) {
			return
		}
	}
}

func (d *Detector[T]) classify(v T) State[T] {
	if d.cfg.IsAvailable == nil || d.cfg.IsAvailable(v) {
		return Available(v)
	}
	return Unavailable[T]()
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
