package dashboard

import (
	"errors"
	"sync"
	"time"

	"github.com/cryptobrief/internal/timer"
	"github.com/cryptobrief/internal/types"
)

// DefaultUpgradeModalDelay is the minimum display time of the upgrade modal
const DefaultUpgradeModalDelay = 5 * time.Second

// ErrModalLocked is returned when closing the upgrade modal too early
var ErrModalLocked = errors.New("modal cannot be closed yet")

// UpgradeModal is the post-redemption announcement. It cannot be closed
// until its countdown reaches zero.
type UpgradeModal struct {
	clock      timer.Clock
	minDisplay time.Duration

	mu        sync.Mutex
	open      bool
	tier      types.AccountTier
	countdown *timer.Countdown
}

// NewUpgradeModal creates a closed modal; minDisplay <= 0 uses the default
func NewUpgradeModal(clock timer.Clock, minDisplay time.Duration) *UpgradeModal {
	if clock == nil {
		clock = timer.Real()
	}
	if minDisplay <= 0 {
		minDisplay = DefaultUpgradeModalDelay
	}
	return &UpgradeModal{clock: clock, minDisplay: minDisplay}
}

// Open shows the modal for tier and starts the countdown
func (m *UpgradeModal) Open(tier types.AccountTier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countdown.Stop()
	m.open = true
	m.tier = tier
	m.countdown = timer.StartCountdown(m.clock, m.minDisplay, nil)
}

// IsOpen reports whether the modal is showing
func (m *UpgradeModal) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// CanClose reports whether the close button is enabled
func (m *UpgradeModal) CanClose() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open && m.countdown.Done()
}

// Close hides the modal once the countdown has elapsed. Closing a closed
// modal is a no-op.
func (m *UpgradeModal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	if !m.countdown.Done() {
		return ErrModalLocked
	}
	m.stopLocked()
	return nil
}

// Stop hides the modal regardless of the countdown (logout, teardown)
func (m *UpgradeModal) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *UpgradeModal) stopLocked() {
	m.open = false
	m.countdown.Stop()
	m.countdown = nil
}

// UpgradeModalView is the renderable modal state
type UpgradeModalView struct {
	Open             bool              `json:"open"`
	Tier             types.AccountTier `json:"tier,omitempty"`
	RemainingSeconds int               `json:"remainingSeconds"`
	CanClose         bool              `json:"canClose"`
}

// View returns the modal state
func (m *UpgradeModal) View() UpgradeModalView {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return UpgradeModalView{}
	}
	return UpgradeModalView{
		Open:             true,
		Tier:             m.tier,
		RemainingSeconds: m.countdown.RemainingSeconds(),
		CanClose:         m.countdown.Done(),
	}
}
