// Package notify implements the transient top-banner notification slot.
package notify

import (
	"sync"
	"time"

	"github.com/cryptobrief/internal/timer"
	"github.com/cryptobrief/internal/types"
)

// DefaultAutoDismiss is the banner lifetime unless configured otherwise
const DefaultAutoDismiss = 4 * time.Second

// Notification is the content of the banner slot
type Notification struct {
	ID          uint64         `json:"id"`
	Message     string         `json:"message"`
	Severity    types.Severity `json:"severity"`
	AutoDismiss time.Duration  `json:"-"`
	DismissMs   int64          `json:"autoDismissMs"`
	ShownAt     time.Time      `json:"shownAt"`
}

// Banner holds at most one notification. There is no queue: showing a new
// notification replaces the visible one and cancels its auto-dismiss.
type Banner struct {
	clock          timer.Clock
	defaultDismiss time.Duration

	mu      sync.Mutex
	current *Notification
	cancel  timer.CancelFunc
	seq     uint64
	closed  bool
}

// NewBanner creates an empty banner slot on clock
func NewBanner(clock timer.Clock) *Banner {
	if clock == nil {
		clock = timer.Real()
	}
	return &Banner{clock: clock, defaultDismiss: DefaultAutoDismiss}
}

// WithDefaultDismiss sets the duration used when Show gets a non-positive one
func (b *Banner) WithDefaultDismiss(d time.Duration) *Banner {
	if d > 0 {
		b.defaultDismiss = d
	}
	return b
}

// Show replaces the current notification with a new one
func (b *Banner) Show(message string, severity types.Severity, autoDismiss time.Duration) Notification {
	if autoDismiss <= 0 {
		autoDismiss = b.defaultDismiss
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}

	b.seq++
	n := &Notification{
		ID:          b.seq,
		Message:     message,
		Severity:    severity,
		AutoDismiss: autoDismiss,
		DismissMs:   autoDismiss.Milliseconds(),
		ShownAt:     b.clock.Now(),
	}
	if b.closed {
		return *n
	}
	b.current = n

	id := n.ID
	b.cancel = timer.ScheduleOnce(b.clock, autoDismiss, func() {
		b.expire(id)
	})

	return *n
}

// Success shows a success notification with the default duration
func (b *Banner) Success(message string) Notification {
	return b.Show(message, types.SeveritySuccess, 0)
}

// Failure shows an error notification with the default duration
func (b *Banner) Failure(message string) Notification {
	return b.Show(message, types.SeverityError, 0)
}

// expire clears the slot only if it still holds notification id
func (b *Banner) expire(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil && b.current.ID == id {
		b.current = nil
		b.cancel = nil
	}
}

// Dismiss clears the slot immediately
func (b *Banner) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.current = nil
}

// Current returns the visible notification, if any
func (b *Banner) Current() *Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	n := *b.current
	return &n
}

// Close clears the slot and stops any pending timer; later Show calls are not displayed
func (b *Banner) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.Dismiss()
}
