package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-client/internal/weather"
)

func TestScreenSubscribeLatestValue(t *testing.T) {
	s := NewScreen()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx)
	assert.Equal(t, KindLoading, (<-ch).Kind)

	s.set(NoLocation())
	s.set(Failure(weather.ErrOffline))
	s.set(Success(weather.ForecastRecord{City: "Oslo"}, weather.FromCache))

	v := <-ch
	assert.Equal(t, KindSuccess, v.Kind)
	assert.Equal(t, "Oslo", v.Forecast.City)
	assert.Equal(t, v.Kind, s.Current().Kind)

	cancel()
	_, open := <-ch
	for open {
		_, open = <-ch
	}
}

func TestFailureMessages(t *testing.T) {
	cases := []struct {
		err   error
		class weather.ErrorClass
	}{
		{fmt.Errorf("x: %w", weather.ErrTransport), weather.ClassTransport},
		{weather.ErrMalformed, weather.ClassMalformed},
		{weather.ErrNoData, weather.ClassNoData},
		{weather.ErrOffline, weather.ClassOffline},
		{errors.New("boom"), weather.ClassUnexpected},
	}
	for _, tc := range cases {
		v := Failure(tc.err)
		require.Equal(t, KindError, v.Kind)
		assert.Equal(t, tc.class, v.Class)
		assert.True(t, strings.HasPrefix(v.Message, MessageFor(tc.class)), v.Message)
	}
}

func TestFailureMessageCarriesCause(t *testing.T) {
	v := Failure(fmt.Errorf("openweather: %w: dial tcp: connection refused", weather.ErrTransport))
	assert.Equal(t, "Network error: could not reach the weather service "+
		"(openweather: network transport failure: dial tcp: connection refused)", v.Message)

	v = Failure(fmt.Errorf("weatherapi: %w: unexpected EOF", weather.ErrMalformed))
	assert.Contains(t, v.Message, "unexpected EOF")

	v = Failure(errors.New("boom"))
	assert.Equal(t, "Unexpected error (boom)", v.Message)

	// classes with a fixed meaning keep the bare message
	assert.Equal(t, "No network and no cache", Failure(weather.ErrOffline).Message)
	assert.Equal(t, MessageFor(weather.ClassNoData), Failure(fmt.Errorf("x: %w", weather.ErrNoData)).Message)
}

func TestSuccessCopiesRecord(t *testing.T) {
	rec := weather.ForecastRecord{City: "Rome", Days: []weather.DayEntry{{TempMax: 30}}}
	v := Success(rec, weather.FromNetwork)
	rec.Days[0].TempMax = 0
	assert.Equal(t, 30.0, v.Forecast.Days[0].TempMax)
}

func TestViewKindJSON(t *testing.T) {
	b, err := KindNoLocation.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "no_location", string(b))
}
