package service

import (
	"context"
	"errors"

	"github.com/cryptobrief/internal/dashboard"
	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/types"
)

// ChannelPanel describes one delivery channel in the settings panel
type ChannelPanel struct {
	Channel   types.DeliveryChannel `json:"channel"`
	Available bool                  `json:"available"`
	Address   *string               `json:"address,omitempty"`
}

// TelegramPanel adds the stored Telegram settings and the modal state
type TelegramPanel struct {
	ChannelPanel
	UpdateRate int                         `json:"updateRate"`
	Modal      dashboard.TelegramModalView `json:"modal"`
}

// ChannelsView is the delivery settings panel
type ChannelsView struct {
	Email    ChannelPanel  `json:"email"`
	Telegram TelegramPanel `json:"telegram"`
	X        ChannelPanel  `json:"x"`
}

// SettingsService manages delivery channel settings
type SettingsService struct {
	accounts AccountStore
	logger   *logging.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(accounts AccountStore, logger *logging.Logger) *SettingsService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &SettingsService{accounts: accounts, logger: logger}
}

// Channels returns the channel panels for the session's tier
func (s *SettingsService) Channels(sess *session.Session) (ChannelsView, error) {
	email, err := requireUser(sess)
	if err != nil {
		return ChannelsView{}, err
	}
	state := sess.View()

	return ChannelsView{
		Email: ChannelPanel{
			Channel:   types.ChannelEmail,
			Available: state.Tier.HasChannel(types.ChannelEmail),
			Address:   &email,
		},
		Telegram: TelegramPanel{
			ChannelPanel: ChannelPanel{
				Channel:   types.ChannelTelegram,
				Available: state.Tier.HasChannel(types.ChannelTelegram),
				Address:   state.Telegram.TelegramID,
			},
			UpdateRate: state.Telegram.UpdateRate,
			Modal:      sess.TelegramModal().View(),
		},
		X: ChannelPanel{
			Channel:   types.ChannelX,
			Available: state.Tier.HasChannel(types.ChannelX),
		},
	}, nil
}

// OpenTelegram opens the Telegram modal seeded with the stored settings
func (s *SettingsService) OpenTelegram(sess *session.Session) (dashboard.TelegramModalView, error) {
	if _, err := requireUser(sess); err != nil {
		return dashboard.TelegramModalView{}, err
	}
	state := sess.View()
	if !state.Tier.HasChannel(types.ChannelTelegram) {
		return dashboard.TelegramModalView{}, apperrors.NewTierRequiredError("Telegram delivery", state.Tier)
	}

	modal := sess.TelegramModal()
	modal.Open(state.Telegram)
	return modal.View(), nil
}

// SaveTelegram persists the Telegram settings from the open modal
func (s *SettingsService) SaveTelegram(ctx context.Context, sess *session.Session, telegramID string, rate int) (dashboard.TelegramModalView, error) {
	email, err := requireUser(sess)
	if err != nil {
		return dashboard.TelegramModalView{}, err
	}

	modal := sess.TelegramModal()
	settings, err := modal.Save(ctx, s.accounts, email, telegramID, rate)
	switch {
	case err == nil:
	case errors.Is(err, dashboard.ErrModalClosed):
		return modal.View(), apperrors.NewConflictError("MODAL_CLOSED", err.Error())
	case errors.Is(err, dashboard.ErrSaveLocked):
		return modal.View(), apperrors.NewConflictError("SAVE_LOCKED",
			"Save will be available in a few seconds")
	case errors.Is(err, dashboard.ErrSaveInFlight):
		return modal.View(), apperrors.NewConflictError("SAVE_IN_PROGRESS", err.Error())
	default:
		s.logger.WithSession(sess.ID).WithError(err).Error("Failed to save Telegram settings")
		sess.Banner().Failure("Failed to save Telegram settings.")
		return modal.View(), persistenceError("update telegram settings", err)
	}

	sess.Update(func(st *session.State) {
		st.Telegram = settings
	})
	sess.Banner().Success("Telegram settings saved")
	return modal.View(), nil
}

// CloseTelegram closes the modal and stops its countdown
func (s *SettingsService) CloseTelegram(sess *session.Session) dashboard.TelegramModalView {
	modal := sess.TelegramModal()
	modal.Close()
	return modal.View()
}
