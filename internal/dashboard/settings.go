package dashboard

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/timer"
)

// DefaultSaveDelay is how long the Telegram Save button stays disabled
const DefaultSaveDelay = 5 * time.Second

var (
	// ErrModalClosed is returned when acting on a modal that is not open
	ErrModalClosed = errors.New("modal is not open")
	// ErrSaveLocked is returned when saving before the countdown has elapsed
	ErrSaveLocked = errors.New("save is not enabled yet")
	// ErrSaveInFlight is returned for a second save while one is running
	ErrSaveInFlight = errors.New("save already in progress")
)

// TelegramSaver persists Telegram delivery settings
type TelegramSaver interface {
	UpdateTelegramSettings(ctx context.Context, email string, telegramID *string, rate int) error
}

// TelegramModal is the Telegram settings dialog. Opening it starts a fixed
// countdown; Save is disabled until the countdown elapses.
type TelegramModal struct {
	clock timer.Clock
	delay time.Duration

	mu        sync.Mutex
	open      bool
	countdown *timer.Countdown
	idInput   string
	rate      int
	saving    bool
	inlineErr *string
}

// NewTelegramModal creates a closed modal; delay <= 0 uses DefaultSaveDelay
func NewTelegramModal(clock timer.Clock, delay time.Duration) *TelegramModal {
	if clock == nil {
		clock = timer.Real()
	}
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &TelegramModal{clock: clock, delay: delay, rate: models.MinTeleUpdateRate}
}

// Open seeds the inputs from current and restarts the countdown
func (m *TelegramModal) Open(current models.TelegramSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.countdown.Stop()
	m.open = true
	m.idInput = ""
	if current.TelegramID != nil {
		m.idInput = *current.TelegramID
	}
	m.rate = models.ClampTeleUpdateRate(current.UpdateRate)
	m.saving = false
	m.inlineErr = nil
	m.countdown = timer.StartCountdown(m.clock, m.delay, nil)
}

// IsOpen reports whether the modal is showing
func (m *TelegramModal) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// SaveEnabled is false right after Open and true once the countdown has
// elapsed, until the modal closes
func (m *TelegramModal) SaveEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveEnabledLocked()
}

func (m *TelegramModal) saveEnabledLocked() bool {
	return m.open && !m.saving && m.countdown.Done()
}

// RemainingSeconds is the countdown shown on the Save button
func (m *TelegramModal) RemainingSeconds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return 0
	}
	return m.countdown.RemainingSeconds()
}

// Save persists the settings. On success the modal closes and the stored
// settings are returned; on failure it stays open with an inline error.
func (m *TelegramModal) Save(ctx context.Context, saver TelegramSaver, email, idInput string, rate int) (models.TelegramSettings, error) {
	m.mu.Lock()
	switch {
	case !m.open:
		m.mu.Unlock()
		return models.TelegramSettings{}, ErrModalClosed
	case m.saving:
		m.mu.Unlock()
		return models.TelegramSettings{}, ErrSaveInFlight
	case !m.countdown.Done():
		m.mu.Unlock()
		return models.TelegramSettings{}, ErrSaveLocked
	}

	settings := models.TelegramSettings{
		TelegramID: models.NormalizeTelegramID(idInput),
		UpdateRate: models.ClampTeleUpdateRate(rate),
	}
	m.idInput = idInput
	m.rate = settings.UpdateRate
	m.saving = true
	m.inlineErr = nil
	m.mu.Unlock()

	err := saver.UpdateTelegramSettings(ctx, email, settings.TelegramID, settings.UpdateRate)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saving = false
	if err != nil {
		msg := "Failed to save Telegram settings: " + err.Error()
		m.inlineErr = &msg
		return models.TelegramSettings{}, err
	}
	m.closeLocked()
	return settings, nil
}

// Close hides the modal and stops the countdown
func (m *TelegramModal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *TelegramModal) closeLocked() {
	m.open = false
	m.inlineErr = nil
	m.countdown.Stop()
	m.countdown = nil
}

// TelegramModalView is the renderable modal state
type TelegramModalView struct {
	Open             bool    `json:"open"`
	TelegramID       string  `json:"telegramId"`
	UpdateRate       int     `json:"updateRate"`
	SaveEnabled      bool    `json:"saveEnabled"`
	RemainingSeconds int     `json:"remainingSeconds"`
	SaveLabel        string  `json:"saveLabel"`
	Saving           bool    `json:"isSaving"`
	Error            *string `json:"error"`
}

// View returns the modal state
func (m *TelegramModal) View() TelegramModalView {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := TelegramModalView{
		Open:       m.open,
		TelegramID: m.idInput,
		UpdateRate: m.rate,
		Saving:     m.saving,
		Error:      m.inlineErr,
	}
	if !m.open {
		return view
	}

	view.SaveEnabled = m.saveEnabledLocked()
	view.RemainingSeconds = m.countdown.RemainingSeconds()
	switch {
	case m.saving:
		view.SaveLabel = "Saving..."
	case view.RemainingSeconds > 0:
		view.SaveLabel = "Save (" + strconv.Itoa(view.RemainingSeconds) + ")"
	default:
		view.SaveLabel = "Save"
	}
	return view
}
