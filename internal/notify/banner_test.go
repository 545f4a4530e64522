package notify

import (
	"testing"
	"time"

	"github.com/cryptobrief/internal/timer"
	"github.com/cryptobrief/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBanner() (*Banner, *timer.FakeClock) {
	clock := timer.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	return NewBanner(clock), clock
}

func TestBanner_AutoDismiss(t *testing.T) {
	b, clock := newTestBanner()

	b.Show("Settings saved", types.SeveritySuccess, 3*time.Second)
	require.NotNil(t, b.Current())
	assert.Equal(t, "Settings saved", b.Current().Message)
	assert.Equal(t, int64(3000), b.Current().DismissMs)

	clock.Advance(2 * time.Second)
	assert.NotNil(t, b.Current())

	clock.Advance(time.Second)
	assert.Nil(t, b.Current())
}

func TestBanner_ReplaceCancelsPreviousTimer(t *testing.T) {
	b, clock := newTestBanner()

	b.Show("A", types.SeverityInfo, 2*time.Second)
	clock.Advance(time.Second)

	b.Show("B", types.SeverityError, 5*time.Second)
	current := b.Current()
	require.NotNil(t, current)
	assert.Equal(t, "B", current.Message)

	// A's timer would have fired here; B must still be visible.
	clock.Advance(1500 * time.Millisecond)
	current = b.Current()
	require.NotNil(t, current)
	assert.Equal(t, "B", current.Message)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(4 * time.Second)
	assert.Nil(t, b.Current())
}

func TestBanner_DefaultDuration(t *testing.T) {
	b, clock := newTestBanner()

	n := b.Failure("Could not save")
	assert.Equal(t, DefaultAutoDismiss, n.AutoDismiss)
	assert.Equal(t, types.SeverityError, n.Severity)

	clock.Advance(DefaultAutoDismiss)
	assert.Nil(t, b.Current())
}

func TestBanner_DismissAndClose(t *testing.T) {
	b, clock := newTestBanner()

	b.Success("hello")
	b.Dismiss()
	assert.Nil(t, b.Current())
	assert.Equal(t, 0, clock.Pending())

	b.Close()
	b.Success("after close")
	assert.Nil(t, b.Current())
	assert.Equal(t, 0, clock.Pending())
}
