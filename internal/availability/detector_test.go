package availability

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int }

func next[T comparable](t *testing.T, ch <-chan State[T]) State[T] {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "stream closed unexpectedly")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state")
		return State[T]{}
	}
}

func assertQuiet[T comparable](t *testing.T, ch <-chan State[T], d time.Duration) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected emission %v", s)
	case <-time.After(d):
	}
}

func TestDetectorRelaysAndDeduplicates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed[point]()
	d := New[point](feed, Config[point]{Name: "test"})
	states := d.Observe(ctx)

	assert.Equal(t, Initial[point](), next(t, states))
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	feed.Publish(point{1, 1})
	feed.Publish(point{1, 1})
	feed.Publish(point{1, 1})
	feed.Publish(point{2, 2})

	assert.Equal(t, Available(point{1, 1}), next(t, states))
	assert.Equal(t, Available(point{2, 2}), next(t, states))
	assertQuiet(t, states, 50*time.Millisecond)
}

func TestDetectorEmitsSingleUnavailableAfterGrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed[point]()
	d := New[point](feed, Config[point]{
		Timeout:      100 * time.Millisecond,
		InitialGrace: 50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	states := d.Observe(ctx)

	assert.Equal(t, KindInitial, next(t, states).Kind)
	assert.Equal(t, Unavailable[point](), next(t, states))
	// many watchdog ticks pass; none may produce a second Unavailable
	assertQuiet(t, states, 300*time.Millisecond)
}

func TestDetectorAvailableUntilTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed[point]()
	d := New[point](feed, Config[point]{
		Timeout:      150 * time.Millisecond,
		InitialGrace: 20 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	states := d.Observe(ctx)

	assert.Equal(t, KindInitial, next(t, states).Kind)
	assert.Equal(t, KindUnavailable, next(t, states).Kind)

	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	feed.Publish(point{3, 4})
	start := time.Now()
	assert.Equal(t, Available(point{3, 4}), next(t, states))

	assert.Equal(t, Unavailable[point](), next(t, states))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assertQuiet(t, states, 100*time.Millisecond)
}

func TestDetectorRepeatedFixKeepsAvailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed[point]()
	d := New[point](feed, Config[point]{
		Timeout:      120 * time.Millisecond,
		InitialGrace: 10 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	states := d.Observe(ctx)
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	feed.Publish(point{1, 2})
	assert.Equal(t, KindInitial, next(t, states).Kind)
	assert.Equal(t, Available(point{1, 2}), next(t, states))

	// identical fixes are collapsed but still count as signs of life
	stop := time.After(300 * time.Millisecond)
	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ticker.C:
			feed.Publish(point{1, 2})
		case s := <-states:
			t.Fatalf("unexpected emission %v while fixes keep arriving", s)
		case <-stop:
			break loop
		}
	}
}

func TestDetectorUsesHistoryAfterGrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed[point]()
	feed.Publish(point{9, 9})

	d := New[point](feed, Config[point]{
		Timeout:      time.Second,
		InitialGrace: 20 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		UseHistory:   true,
	})
	states := d.Observe(ctx)

	assert.Equal(t, KindInitial, next(t, states).Kind)
	assert.Equal(t, Available(point{9, 9}), next(t, states))
}

func TestDetectorHistoryMissIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed[point]()
	d := New[point](feed, Config[point]{
		Timeout:      time.Second,
		InitialGrace: 20 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		UseHistory:   true,
	})
	states := d.Observe(ctx)

	assert.Equal(t, KindInitial, next(t, states).Kind)
	assert.Equal(t, Unavailable[point](), next(t, states))
	assertQuiet(t, states, 100*time.Millisecond)
}

// countingHistory counts LastKnown lookups on top of a Feed.
type countingHistory struct {
	*Feed[point]
	lookups atomic.Int32
}

func (c *countingHistory) LastKnown(ctx context.Context) (point, error) {
	c.lookups.Add(1)
	return c.Feed.LastKnown(ctx)
}

func TestDetectorLooksUpHistoryExactlyOnce(t *testing.T) {
	cases := []struct {
		name    string
		history bool
		want    State[point]
	}{
		{"hit", true, Available(point{4, 4})},
		{"miss", false, Unavailable[point]()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			src := &countingHistory{Feed: NewFeed[point]()}
			if tc.history {
				src.Publish(point{4, 4})
			}
			d := New[point](src, Config[point]{
				Timeout:      5 * time.Second,
				InitialGrace: 20 * time.Millisecond,
				PollInterval: 5 * time.Millisecond,
				UseHistory:   true,
			})
			states := d.Observe(ctx)

			assert.Equal(t, KindInitial, next(t, states).Kind)
			assert.Equal(t, tc.want, next(t, states))

			// many poll ticks later there is still only the one lookup
			assertQuiet(t, states, 200*time.Millisecond)
			assert.Equal(t, int32(1), src.lookups.Load())
		})
	}
}

func TestDetectorRetriesRegistrationUntilPermitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed[point]()
	feed.SetEnabled(false)

	d := New[point](feed, Config[point]{RetryInterval: 10 * time.Millisecond})
	states := d.Observe(ctx)

	assert.Equal(t, KindInitial, next(t, states).Kind)
	assert.Equal(t, Unavailable[point](), next(t, states))
	assertQuiet(t, states, 50*time.Millisecond)

	feed.SetEnabled(true)
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	feed.Publish(point{5, 5})
	assert.Equal(t, Available(point{5, 5}), next(t, states))
}

func TestDetectorClassifiesValues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed[string]()
	d := New[string](feed, Config[string]{
		IsAvailable: func(s string) bool { return s == "up" },
	})
	states := d.Observe(ctx)
	assert.Equal(t, KindInitial, next(t, states).Kind)
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	for _, s := range []string{"up", "up", "losing", "lost", "up"} {
		feed.Publish(s)
	}

	assert.Equal(t, Available("up"), next(t, states))
	assert.Equal(t, Unavailable[string](), next(t, states))
	assert.Equal(t, Available("up"), next(t, states))
	assertQuiet(t, states, 50*time.Millisecond)
}

func TestDetectorCancellationReleasesRegistration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	feed := NewFeed[point]()
	d := New[point](feed, Config[point]{
		Timeout:      50 * time.Millisecond,
		InitialGrace: 10 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})
	states := d.Observe(ctx)
	next(t, states)
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-states:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return feed.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDetectorSubscriptionsAreIndependent(t *testing.T) {
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()

	feed := NewFeed[point]()
	d := New[point](feed, Config[point]{})

	s1 := d.Observe(ctx1)
	s2 := d.Observe(ctx2)
	next(t, s1)
	next(t, s2)
	require.Eventually(t, func() bool { return feed.Subscribers() == 2 }, time.Second, 5*time.Millisecond)

	cancel1()
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	feed.Publish(point{7, 7})
	assert.Equal(t, Available(point{7, 7}), next(t, s2))
}
