// Package timer provides the one-shot timer and countdown used by the UI gates:
// banner auto-dismiss, the settings save delay and the upgrade modal's minimum
// display time. All of them run on an injectable Clock so tests can fast-forward.
package timer

import (
	"math"
	"sync"
	"time"
)

// Clock is the time source for timers
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// Stopper stops a scheduled callback
type Stopper interface {
	Stop() bool
}

// CancelFunc cancels a scheduled callback. It is safe to call more than once.
type CancelFunc func()

type realClock struct{}

// Real returns the wall clock
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// ScheduleOnce runs f after d on clock. The returned CancelFunc guarantees f
// does not run if called before f has started.
func ScheduleOnce(clock Clock, d time.Duration, f func()) CancelFunc {
	var (
		mu        sync.Mutex
		cancelled bool
	)

	stopper := clock.AfterFunc(d, func() {
		mu.Lock()
		if cancelled {
			mu.Unlock()
			return
		}
		cancelled = true
		mu.Unlock()
		f()
	})

	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		stopper.Stop()
	}
}

// Countdown is a fixed delay gate: Done is false until the duration has
// elapsed, then stays true until the countdown is stopped.
type Countdown struct {
	clock    Clock
	deadline time.Time
	cancel   CancelFunc

	mu      sync.RWMutex
	done    bool
	stopped bool
}

// StartCountdown starts a countdown of d on clock. onDone, if non-nil, runs
// once when the countdown elapses.
func StartCountdown(clock Clock, d time.Duration, onDone func()) *Countdown {
	c := &Countdown{
		clock:    clock,
		deadline: clock.Now().Add(d),
	}

	if d <= 0 {
		c.done = true
		if onDone != nil {
			onDone()
		}
		c.cancel = func() {}
		return c
	}

	c.cancel = ScheduleOnce(clock, d, func() {
		c.mu.Lock()
		if c.stopped {
			c.mu.Unlock()
			return
		}
		c.done = true
		c.mu.Unlock()
		if onDone != nil {
			onDone()
		}
	})
	return c
}

// Done reports whether the countdown has elapsed and was not stopped
func (c *Countdown) Done() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done && !c.stopped
}

// RemainingSeconds returns the whole seconds left, rounded up; 0 once done
func (c *Countdown) RemainingSeconds() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	done := c.done
	c.mu.RUnlock()
	if done {
		return 0
	}

	left := c.deadline.Sub(c.clock.Now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Stop cancels the countdown; Done reports false afterwards
func (c *Countdown) Stop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.cancel()
}
