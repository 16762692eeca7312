// Package availability turns bursty push signals (location fixes,
// connectivity callbacks) into an ordered, de-duplicated stream of
// Initial / Available / Unavailable states.
package availability

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned by sources that cannot register
	// because the platform refused access. Detectors keep retrying.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNoHistory is returned by HistorySource when no past value exists.
	ErrNoHistory = errors.New("no historical value")
)

// Kind tags a State.
type Kind int

const (
	KindInitial Kind = iota
	KindAvailable
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindAvailable:
		return "available"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// State is one element of a detector stream. Payload is only meaningful
// when Kind is KindAvailable.
type State[T comparable] struct {
	Kind    Kind
	Payload T
}

func Initial[T comparable]() State[T] { return State[T]{Kind: KindInitial} }

func Available[T comparable](payload T) State[T] {
	return State[T]{Kind: KindAvailable, Payload: payload}
}

func Unavailable[T comparable]() State[T] { return State[T]{Kind: KindUnavailable} }

func (s State[T]) IsAvailable() bool { return s.Kind == KindAvailable }

func (s State[T]) String() string {
	if s.Kind == KindAvailable {
		return fmt.Sprintf("available(%v)", s.Payload)
	}
	return s.Kind.String()
}

// Source is a push-style producer, e.g. a platform location callback.
type Source[T any] interface {
	// Subscribe registers for updates. The channel is closed once ctx is
	// done and the registration has been released.
	Subscribe(ctx context.Context) (<-chan T, error)
}

// HistorySource can return a one-time historical value such as the last
// cached hardware reading.
type HistorySource[T any] interface {
	LastKnown(ctx context.Context) (T, error)
}
