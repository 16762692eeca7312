package availability

import (
	"context"
	"sync"
)

const feedBuffer = 16

// Feed is an in-process push source. Platform bridges call Publish; each
// active subscription receives values in order. A slow subscriber loses
// its oldest buffered values, never the newest.
type Feed[T any] struct {
	mu      sync.Mutex
	subs    map[uint64]*feedSub[T]
	nextID  uint64
	enabled bool
	last    T
	hasLast bool
}

var (
	_ Source[int]        = (*Feed[int])(nil)
	_ HistorySource[int] = (*Feed[int])(nil)
)

// feedSub is one registration. done releases the goroutine waiting on the
// subscriber's context once the registration is dropped.
type feedSub[T any] struct {
	ch   chan T
	done chan struct{}
}

func (s *feedSub[T]) close() {
	close(s.ch)
	close(s.done)
}

// NewFeed returns an enabled feed with no history.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{
		subs:    make(map[uint64]*feedSub[T]),
		enabled: true,
	}
}

// SetEnabled models the platform permission / hardware switch. Disabling
// drops every registration; Subscribe fails until the feed is enabled again.
func (f *Feed[T]) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.enabled = enabled
	if enabled {
		return
	}
	for id, sub := range f.subs {
		delete(f.subs, id)
		sub.close()
	}
}

// Enabled reports the current permission state.
func (f *Feed[T]) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// Publish delivers v to every subscriber. It is dropped while disabled.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.enabled {
		return
	}
	f.last = v
	f.hasLast = true

	for _, sub := range f.subs {
		ch := sub.ch
		select {
		case ch <- v:
			continue
		default:
		}
		// full: drop the oldest value to make room for the newest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe implements Source.
func (f *Feed[T]) Subscribe(ctx context.Context) (<-chan T, error) {
	f.mu.Lock()
	if !f.enabled {
		f.mu.Unlock()
		return nil, ErrPermissionDenied
	}
	id := f.nextID
	f.nextID++
	sub := &feedSub[T]{
		ch:   make(chan T, feedBuffer),
		done: make(chan struct{}),
	}
	f.subs[id] = sub
	f.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			f.remove(id)
		case <-sub.done:
		}
	}()

	return sub.ch, nil
}

// LastKnown implements HistorySource with the last published value.
func (f *Feed[T]) LastKnown(ctx context.Context) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if !f.enabled {
		return zero, ErrPermissionDenied
	}
	if !f.hasLast {
		return zero, ErrNoHistory
	}
	return f.last, nil
}

// Subscribers returns the number of live registrations.
func (f *Feed[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sub, ok := f.subs[id]; ok {
		delete(f.subs, id)
		sub.close()
	}
}
