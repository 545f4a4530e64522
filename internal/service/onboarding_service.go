package service

import (
	"context"
	"time"

	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/timer"
	"github.com/cryptobrief/internal/types"
	"github.com/cryptobrief/internal/wizard"
)

// Banner texts after a preferences save or reset
const (
	PrefsSavedMessage     = "Preferences saved successfully!"
	PrefsFirstSaveMessage = "Preferences saved! Your first personalized brief will be ready in 15-20 minutes."
	PrefsUpdatedMessage   = "Preferences updated! Your personalized brief will update within a few hours. Upgrade to Enterprise for instant changes."
	PrefsResetMessage     = "Preferences reset. Please set your new preferences."
	PrefsResetPaidMessage = "Preferences reset! Your personalized brief will update within a few hours. Upgrade to Enterprise for instant changes."

	firstBriefNoticeDuration = 5 * time.Second
	feedUpdateNoticeDuration = 7 * time.Second
)

// WizardView is the onboarding draft plus the suggestion catalogue
type WizardView struct {
	wizard.Snapshot
	Catalog wizard.Catalog `json:"catalog"`
}

// OnboardingService drives the preference wizard and persists its result
type OnboardingService struct {
	accounts AccountStore
	clock    timer.Clock
	catalog  wizard.Catalog
	logger   *logging.Logger
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(accounts AccountStore, clock timer.Clock, logger *logging.Logger) *OnboardingService {
	if clock == nil {
		clock = timer.Real()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &OnboardingService{
		accounts: accounts,
		clock:    clock,
		catalog:  wizard.DefaultCatalog(),
		logger:   logger,
	}
}

// View returns the draft of the session
func (s *OnboardingService) View(sess *session.Session) (WizardView, error) {
	if _, err := requireUser(sess); err != nil {
		return WizardView{}, err
	}
	return s.view(sess), nil
}

func (s *OnboardingService) view(sess *session.Session) WizardView {
	return WizardView{Snapshot: sess.Wizard().Snapshot(), Catalog: s.catalog}
}

// apply runs op on the session's draft and returns the new view
func (s *OnboardingService) apply(sess *session.Session, op func(w *wizard.Wizard) error) (WizardView, error) {
	if _, err := requireUser(sess); err != nil {
		return WizardView{}, err
	}
	if err := op(sess.Wizard()); err != nil {
		return s.view(sess), wizardError(err)
	}
	return s.view(sess), nil
}

// Toggle flips item in the set
func (s *OnboardingService) Toggle(sess *session.Session, kind wizard.SetKind, item string) (WizardView, error) {
	return s.apply(sess, func(w *wizard.Wizard) error { return w.Toggle(kind, item) })
}

// SetInput stores the free-text buffer of the set
func (s *OnboardingService) SetInput(sess *session.Session, kind wizard.SetKind, text string) (WizardView, error) {
	return s.apply(sess, func(w *wizard.Wizard) error { return w.SetInput(kind, text) })
}

// AddCustom adds text, or the buffered text when text is nil
func (s *OnboardingService) AddCustom(sess *session.Session, kind wizard.SetKind, text *string) (WizardView, error) {
	return s.apply(sess, func(w *wizard.Wizard) error {
		if text == nil {
			return w.SubmitInput(kind)
		}
		return w.AddCustom(kind, *text)
	})
}

// Remove deletes item from the set
func (s *OnboardingService) Remove(sess *session.Session, kind wizard.SetKind, item string) (WizardView, error) {
	return s.apply(sess, func(w *wizard.Wizard) error { return w.Remove(kind, item) })
}

// Next advances the wizard
func (s *OnboardingService) Next(sess *session.Session) (WizardView, error) {
	return s.apply(sess, func(w *wizard.Wizard) error { return w.Next() })
}

// Back returns one step
func (s *OnboardingService) Back(sess *session.Session) (WizardView, error) {
	return s.apply(sess, func(w *wizard.Wizard) error { return w.Back() })
}

// Finish saves the completed draft and routes to the dashboard. The draft
// is locked while the save is in flight; a failed save keeps it for retry.
func (s *OnboardingService) Finish(ctx context.Context, sess *session.Session) (session.State, error) {
	email, err := requireUser(sess)
	if err != nil {
		return session.State{}, err
	}

	wasSetUp := sess.View().Preferences != nil

	w := sess.Wizard()
	prefs, err := w.BeginSave()
	if err != nil {
		return sess.View(), wizardError(err)
	}

	now := s.clock.Now().UTC()
	err = s.accounts.SavePreferences(ctx, email, prefs, now)
	w.SetSaving(false)

	if err != nil {
		s.logger.WithSession(sess.ID).WithError(err).Error("Failed to save preferences")
		sess.Banner().Failure("Failed to save your preferences. Please try again.")
		return sess.View(), persistenceError("save preferences", err)
	}

	state := sess.Update(func(st *session.State) {
		st.Preferences = prefs.Clone()
		st.PreferenceUpdatedAt = &now
		st.Page = types.PageDashboard
	})
	sess.ResetWizard(nil)
	announceSaved(sess, state.Tier, wasSetUp)
	return state, nil
}

// announceSaved picks the save banner. Paid tiers are told when their
// personalized brief will reflect the change.
func announceSaved(sess *session.Session, tier types.AccountTier, wasSetUp bool) {
	switch {
	case !tier.CanViewFeeds():
		sess.Banner().Success(PrefsSavedMessage)
	case wasSetUp:
		sess.Banner().Show(PrefsUpdatedMessage, types.SeverityInfo, feedUpdateNoticeDuration)
	default:
		sess.Banner().Show(PrefsFirstSaveMessage, types.SeveritySuccess, firstBriefNoticeDuration)
	}
}

// ResetPreferences clears the stored preferences and restarts onboarding
// with an empty draft
func (s *OnboardingService) ResetPreferences(ctx context.Context, sess *session.Session) (session.State, error) {
	email, err := requireUser(sess)
	if err != nil {
		return session.State{}, err
	}

	now := s.clock.Now().UTC()
	if err := s.accounts.SavePreferences(ctx, email, nil, now); err != nil {
		s.logger.WithSession(sess.ID).WithError(err).Error("Failed to reset preferences")
		sess.Banner().Failure("Failed to reset your preferences.")
		return sess.View(), persistenceError("reset preferences", err)
	}

	sess.ResetWizard(nil)
	state := sess.Update(func(st *session.State) {
		st.Preferences = nil
		st.PreferenceUpdatedAt = &now
		st.Page = types.PageOnboarding
	})
	if state.Tier.CanViewFeeds() {
		sess.Banner().Show(PrefsResetPaidMessage, types.SeverityInfo, feedUpdateNoticeDuration)
	} else {
		sess.Banner().Show(PrefsResetMessage, types.SeverityInfo, 0)
	}
	return state, nil
}
