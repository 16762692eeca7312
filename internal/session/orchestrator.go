// Package session runs one screen session: it turns location and
// connectivity states into fetch cycles and keeps the Screen consistent
// with their outcomes.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/i474232898/weather-client/internal/availability"
	"github.com/i474232898/weather-client/internal/location"
	"github.com/i474232898/weather-client/internal/metrics"
	"github.com/i474232898/weather-client/internal/network"
	"github.com/i474232898/weather-client/internal/weather"
)

// ErrStopped is returned by commands sent after Run has returned.
var ErrStopped = errors.New("session stopped")

// Cycler runs the two halves of a fetch cycle. *weather.Service implements it.
type Cycler interface {
	Plan(ctx context.Context, c weather.Coordinate, networkUp, force bool) weather.Plan
	Execute(ctx context.Context, p weather.Plan) weather.Outcome
}

// Deps wires an Orchestrator.
type Deps struct {
	Cycler    Cycler
	Locations weather.LocationStore
	Screen    *Screen
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

// Orchestrator is the single writer of a Screen. Every event starts a
// sequence-numbered cycle in its own goroutine; the Run loop applies a
// cycle's resolution only if no later cycle has already resolved.
type Orchestrator struct {
	id        string
	cycler    Cycler
	locations weather.LocationStore
	screen    *Screen
	logger    *slog.Logger
	metrics   *metrics.Recorder

	cmds chan command
	msgs chan message
	done chan struct{}
	once sync.Once
}

func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	screen := deps.Screen
	if screen == nil {
		screen = NewScreen()
	}
	id := uuid.NewString()
	return &Orchestrator{
		id:        id,
		cycler:    deps.Cycler,
		locations: deps.Locations,
		screen:    screen,
		logger:    logger.With("component", "session", "session", id),
		metrics:   deps.Metrics,
		cmds:      make(chan command),
		msgs:      make(chan message),
		done:      make(chan struct{}),
	}
}

func (o *Orchestrator) ID() string { return o.id }

func (o *Orchestrator) Screen() *Screen { return o.screen }

type command struct {
	force bool
}

// Refresh re-runs a cycle for the known location, bypassing freshness when
// force is set.
func (o *Orchestrator) Refresh(ctx context.Context, force bool) error {
	select {
	case o.cmds <- command{force: force}:
		return nil
	case <-o.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry is a non-forced Refresh, offered from the Error state.
func (o *Orchestrator) Retry(ctx context.Context) error {
	return o.Refresh(ctx, false)
}

type message interface{ sequence() uint64 }

type loadingMsg struct {
	seq   uint64
	force bool
}

type resultMsg struct {
	seq     uint64
	outcome weather.Outcome
}

type restoredMsg struct {
	seq uint64
	loc weather.Coordinate
	err error
}

func (m loadingMsg) sequence() uint64  { return m.seq }
func (m resultMsg) sequence() uint64   { return m.seq }
func (m restoredMsg) sequence() uint64 { return m.seq }

// loop holds the state owned by the Run goroutine.
type loop struct {
	ctx context.Context
	wg  sync.WaitGroup

	seq     uint64 // last issued
	applied uint64 // last resolution written to the screen

	loc       *weather.Coordinate
	networkUp bool

	// restoring is the seq of an in-flight last-location read, 0 if none.
	// Refreshes that arrive meanwhile are folded into it.
	restoring    uint64
	restoreForce bool
}

// Run consumes both detector streams until ctx is cancelled. It must be
// called once; nothing is written to the Screen after it returns.
func (o *Orchestrator) Run(ctx context.Context, locs <-chan location.State, nets <-chan network.State) {
	ctx, cancel := context.WithCancel(ctx)
	l := &loop{ctx: ctx}
	defer func() {
		cancel()
		l.wg.Wait()
		o.once.Do(func() { close(o.done) })
	}()

	o.logger.Info("session started")
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("session stopped")
			return

		case st, ok := <-locs:
			if !ok {
				locs = nil
				continue
			}
			o.onLocation(l, st)

		case st, ok := <-nets:
			if !ok {
				nets = nil
				continue
			}
			o.onNetwork(l, st)

		case cmd := <-o.cmds:
			o.onRefresh(l, cmd.force)

		case m := <-o.msgs:
			o.onMessage(l, m)
		}
	}
}

func (o *Orchestrator) onLocation(l *loop, st location.State) {
	switch st.Kind {
	case availability.KindAvailable:
		c := st.Payload
		l.loc = &c
		o.persist(l, c)
		o.startCycle(l, c, false)
	case availability.KindUnavailable:
		if l.loc != nil {
			// nothing new; keep serving the last location
			o.startCycle(l, *l.loc, false)
			return
		}
		o.startRestore(l)
	}
}

func (o *Orchestrator) onNetwork(l *loop, st network.State) {
	if st.Kind == availability.KindInitial {
		return
	}
	wasUp := l.networkUp
	l.networkUp = st.IsAvailable()
	o.logger.Debug("connectivity changed", "up", l.networkUp, "status", string(st.Payload))

	if !wasUp && l.networkUp && l.loc != nil && o.screen.Current().Kind == KindError {
		o.startCycle(l, *l.loc, false)
	}
}

func (o *Orchestrator) onRefresh(l *loop, force bool) {
	if l.loc == nil && l.restoring != 0 {
		l.restoreForce = l.restoreForce || force
		return
	}
	if l.loc == nil {
		l.seq++
		o.apply(l, l.seq, NoLocation())
		return
	}
	o.startCycle(l, *l.loc, force)
}

func (o *Orchestrator) onMessage(l *loop, m message) {
	switch m := m.(type) {
	case loadingMsg:
		if m.seq <= l.applied {
			return
		}
		if m.force || o.screen.Current().Kind != KindSuccess {
			o.screen.set(Loading())
		}

	case resultMsg:
		if m.outcome.Err != nil {
			o.apply(l, m.seq, Failure(m.outcome.Err))
			return
		}
		o.apply(l, m.seq, Success(m.outcome.Record, m.outcome.Source))

	case restoredMsg:
		force := l.restoreForce
		if m.seq == l.restoring {
			l.restoring, l.restoreForce = 0, false
		}
		if m.seq != l.seq || l.loc != nil {
			o.logger.Debug("last location read superseded", "seq", m.seq)
			return
		}
		if m.err != nil {
			if !errors.Is(m.err, weather.ErrNotFound) {
				o.logger.Warn("reading last location failed", "error", m.err)
			}
			o.apply(l, m.seq, NoLocation())
			return
		}
		o.logger.Info("restored last known location", "coordinate", m.loc.String())
		c := m.loc
		l.loc = &c
		o.startCycle(l, c, force)
	}
}

// apply writes a resolution unless a later cycle already resolved.
func (o *Orchestrator) apply(l *loop, seq uint64, v ViewState) {
	if seq <= l.applied {
		o.metrics.CycleSuperseded()
		o.logger.Debug("discarding superseded result", "seq", seq, "applied", l.applied, "kind", v.Kind.String())
		return
	}
	l.applied = seq
	o.screen.set(v)
	o.metrics.CycleResolved(v.Kind.String())
	o.logger.Debug("view state", "seq", seq, "kind", v.Kind.String())
}

func (o *Orchestrator) startCycle(l *loop, c weather.Coordinate, force bool) {
	l.seq++
	seq, networkUp := l.seq, l.networkUp

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		plan := o.cycler.Plan(l.ctx, c, networkUp, force)
		if plan.Decision.NeedsNetwork() {
			if !o.post(l.ctx, loadingMsg{seq: seq, force: force}) {
				return
			}
		}
		out := o.cycler.Execute(l.ctx, plan)
		o.post(l.ctx, resultMsg{seq: seq, outcome: out})
	}()
}

func (o *Orchestrator) startRestore(l *loop) {
	l.seq++
	seq := l.seq

	if o.locations == nil {
		o.apply(l, seq, NoLocation())
		return
	}

	l.restoring = seq
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		c, err := o.locations.ReadLast(l.ctx)
		o.post(l.ctx, restoredMsg{seq: seq, loc: c, err: err})
	}()
}

// persist stores the fix as the last known location. Failures are only logged.
func (o *Orchestrator) persist(l *loop, c weather.Coordinate) {
	if o.locations == nil {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := o.locations.WriteLast(l.ctx, c); err != nil {
			o.logger.Warn("persisting last location failed", "coordinate", c.String(), "error", err)
		}
	}()
}

func (o *Orchestrator) post(ctx context.Context, m message) bool {
	select {
	case o.msgs <- m:
		return true
	case <-ctx.Done():
		return false
	}
}
