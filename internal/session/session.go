// Package session holds the per-user, in-memory dashboard session: identity,
// tier, loaded account data and the UI collaborators that act on them.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cryptobrief/internal/dashboard"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/notify"
	"github.com/cryptobrief/internal/types"
	"github.com/cryptobrief/internal/wizard"
)

// State is everything the session knows about the signed-in user
type State struct {
	Authenticated       bool                    `json:"authenticated"`
	Profile             *models.Profile         `json:"profile"`
	Page                types.Page              `json:"page"`
	Tier                types.AccountTier       `json:"tier"`
	Preferences         *models.UserPreferences `json:"preferences"`
	Feeds               models.NewsFeeds        `json:"-"`
	Telegram            models.TelegramSettings `json:"telegram"`
	PreferenceUpdatedAt *time.Time              `json:"preferenceUpdatedAt"`
	ErrorMessage        string                  `json:"errorMessage,omitempty"`
}

// DefaultState is the signed-out state every session starts from and
// returns to on logout
func DefaultState() State {
	return State{
		Page:     types.PageLogin,
		Tier:     types.TierBasic,
		Telegram: models.TelegramSettings{UpdateRate: models.MinTeleUpdateRate},
	}
}

// ApplyAccount copies the persisted account into the state
func (s *State) ApplyAccount(account *models.UserAccount) {
	s.Tier = account.Tier()
	s.Preferences = account.Preferences.Clone()
	s.Feeds = account.Feeds()
	s.Telegram = account.Telegram()
	s.PreferenceUpdatedAt = account.PreferenceUpdatedAt
}

// Email returns the signed-in email, or "" when signed out
func (s State) Email() string {
	if !s.Authenticated || s.Profile == nil {
		return ""
	}
	return s.Profile.Email
}

func (s State) clone() State {
	out := s
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	out.Preferences = s.Preferences.Clone()
	return out
}

// Session is one browser session. State changes go through Update; the
// collaborators carry their own locking.
type Session struct {
	ID        string
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	deps   Deps

	mu       sync.Mutex
	state    State
	lastSeen time.Time
	wizard   *wizard.Wizard
	dash     *dashboard.Coordinator
	telegram *dashboard.TelegramModal
	upgrade  *dashboard.UpgradeModal
	banner   *notify.Banner
}

func newSession(id string, deps Deps) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	now := deps.Clock.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		ctx:       ctx,
		cancel:    cancel,
		deps:      deps,
		state:     DefaultState(),
		lastSeen:  now,
		banner:    notify.NewBanner(deps.Clock).WithDefaultDismiss(deps.BannerDismiss),
		telegram:  dashboard.NewTelegramModal(deps.Clock, deps.SettingsDelay),
		upgrade:   dashboard.NewUpgradeModal(deps.Clock, deps.UpgradeDelay),
		wizard:    wizard.New(),
	}
	s.dash = s.newCoordinator()
	return s
}

func (s *Session) newCoordinator() *dashboard.Coordinator {
	return dashboard.NewCoordinator(s.ctx, s.deps.Briefs, s.deps.Trending, s.deps.Logger.WithSession(s.ID))
}

// Context is cancelled when the session is destroyed
func (s *Session) Context() context.Context {
	return s.ctx
}

// Update applies fn to the state. Concurrent updates are serialized and the
// last one wins.
func (s *Session) Update(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	return s.state.clone()
}

// View returns a copy of the state
func (s *Session) View() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Wizard returns the onboarding draft
func (s *Session) Wizard() *wizard.Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wizard
}

// ResetWizard replaces the draft with one seeded from prefs
func (s *Session) ResetWizard(prefs *models.UserPreferences) *wizard.Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wizard = wizard.NewFromPreferences(prefs)
	return s.wizard
}

// Dashboard returns the dashboard coordinator
func (s *Session) Dashboard() *dashboard.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dash
}

// TelegramModal returns the Telegram settings modal
func (s *Session) TelegramModal() *dashboard.TelegramModal {
	return s.telegram
}

// UpgradeModal returns the post-redemption modal
func (s *Session) UpgradeModal() *dashboard.UpgradeModal {
	return s.upgrade
}

// Banner returns the notification slot
func (s *Session) Banner() *notify.Banner {
	return s.banner
}

// Logger returns a logger tagged with the session id
func (s *Session) Logger() *logging.Logger {
	return s.deps.Logger.WithSession(s.ID)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time of the last request on the session
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Reset returns the session to its defaults on page, keeping the id. Used
// for forced logouts where the browser keeps its cookie.
func (s *Session) Reset(page types.Page, message string) {
	s.telegram.Close()
	s.upgrade.Stop()
	s.banner.Dismiss()

	s.mu.Lock()
	old := s.dash
	s.dash = s.newCoordinator()
	s.wizard = wizard.New()
	s.state = DefaultState()
	s.state.Page = page
	s.state.ErrorMessage = message
	s.mu.Unlock()

	old.Close()
}

// teardown cancels outstanding work and stops every timer
func (s *Session) teardown() {
	s.telegram.Close()
	s.upgrade.Stop()
	s.banner.Close()

	s.mu.Lock()
	s.dash.Close()
	s.state = DefaultState()
	s.mu.Unlock()

	s.cancel()
}
