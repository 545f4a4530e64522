package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time { return c.t }

func newTestBreaker(clock *manualClock) *CircuitBreaker {
	return NewCircuitBreaker(&Config{
		Name:                "test",
		ConsecutiveFailures: 2,
		OpenTimeout:         10 * time.Second,
		HalfOpenMaxCalls:    1,
		IsFailure:           func(err error) bool { return errors.Is(err, errUpstream) },
		Now:                 clock.now,
	})
}

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := &manualClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open circuit fails fast")
}

func TestCircuitBreaker_NonFailuresDoNotCount(t *testing.T) {
	clock := &manualClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)
	notFound := errors.New("404")

	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return notFound })
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &manualClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	require.Equal(t, StateOpen, cb.GetState())

	clock.t = clock.t.Add(11 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, cb.GetState(), "failed probe reopens")

	clock.t = clock.t.Add(11 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.GetState())

	stats := cb.GetStats()
	assert.Equal(t, 3, stats.Failures)
	assert.Equal(t, 1, stats.Successes)
	require.NotNil(t, stats.LastFailureTime)
}

func TestCircuitBreaker_CancelledCallerIsNotAFailure(t *testing.T) {
	clock := &manualClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker(&Config{Name: "ctx", ConsecutiveFailures: 1, Now: clock.now})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager()
	a := m.GetOrCreate("openserv", nil)
	b := m.GetOrCreate("openserv", DefaultConfig("ignored"))
	m.GetOrCreate("coingecko", nil)

	assert.Same(t, a, b)
	stats := m.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "coingecko", stats[0].Name)
	assert.Equal(t, "openserv", stats[1].Name)
}
