package weather

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by stores when no data exists for the key.
	ErrNotFound = errors.New("no weather data for location")

	ErrUnauthorized = errors.New("unauthorized")
	ErrTransport    = errors.New("network transport failure")
	ErrMalformed    = errors.New("malformed forecast response")
	// ErrNoData is an empty but otherwise valid provider response.
	ErrNoData = errors.New("no forecast data available")
	// ErrOffline is the policy's terminal failure: no network and no cache.
	ErrOffline = errors.New("no network and no cache")
)

// ErrorClass groups errors by how the fetch cycle and the screen treat them.
type ErrorClass string

const (
	ClassNone         ErrorClass = ""
	ClassUnauthorized ErrorClass = "unauthorized"
	ClassTransport    ErrorClass = "transport"
	ClassMalformed    ErrorClass = "malformed"
	ClassNoData       ErrorClass = "no_data"
	ClassOffline      ErrorClass = "offline"
	ClassUnexpected   ErrorClass = "unexpected"
)

// Classify maps an error from the primary fetch path to its class.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrUnauthorized):
		return ClassUnauthorized
	case errors.Is(err, ErrMalformed):
		return ClassMalformed
	case errors.Is(err, ErrNoData):
		return ClassNoData
	case errors.Is(err, ErrOffline):
		return ClassOffline
	case errors.Is(err, ErrTransport),
		errors.Is(err, context.DeadlineExceeded):
		return ClassTransport
	default:
		return ClassUnexpected
	}
}
