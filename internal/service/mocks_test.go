package service

import (
	"context"
	"sync"
	"time"

	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/storage"
	"github.com/cryptobrief/internal/timer"
	"github.com/cryptobrief/internal/types"
)

// Mock collaborators for testing

type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*models.UserAccount
	calls    map[string]int

	getErr    error
	createErr error
	saveErr   error
	teleErr   error
	proErr    error
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		accounts: map[string]*models.UserAccount{},
		calls:    map[string]int{},
	}
}

func (m *mockAccountStore) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["GetByEmail"]++
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.accounts[email]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	copied := *a
	copied.Preferences = a.Preferences.Clone()
	return &copied, nil
}

func (m *mockAccountStore) Create(ctx context.Context, account *models.UserAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Create"]++
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.accounts[account.Email]; !ok {
		copied := *account
		m.accounts[account.Email] = &copied
	}
	return nil
}

func (m *mockAccountStore) SavePreferences(ctx context.Context, email string, prefs *models.UserPreferences, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["SavePreferences"]++
	if m.saveErr != nil {
		return m.saveErr
	}
	a, ok := m.accounts[email]
	if !ok {
		a = models.NewUserAccount(email)
		m.accounts[email] = a
	}
	a.Preferences = prefs.Clone()
	if prefs.IsEmpty() {
		a.Preferences = nil
	}
	a.PreferenceUpdatedAt = &updatedAt
	return nil
}

func (m *mockAccountStore) UpdateTelegramSettings(ctx context.Context, email string, telegramID *string, rate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["UpdateTelegramSettings"]++
	if m.teleErr != nil {
		return m.teleErr
	}
	a, ok := m.accounts[email]
	if !ok {
		return storage.ErrAccountNotFound
	}
	a.TelegramID = telegramID
	a.TeleUpdateRate = rate
	return nil
}

func (m *mockAccountStore) SetPro(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["SetPro"]++
	if m.proErr != nil {
		return m.proErr
	}
	a, ok := m.accounts[email]
	if !ok {
		return storage.ErrAccountNotFound
	}
	a.IsPro = true
	return nil
}

type mockIdentity struct {
	configured bool
	profile    *models.Profile
	err        error
	lastCode   string
	lastVerif  string
}

func (m *mockIdentity) Configured() bool    { return m.configured }
func (m *mockIdentity) NewVerifier() string { return "verifier-xyz" }

func (m *mockIdentity) AuthCodeURL(state, verifier string) string {
	return "https://accounts.example/auth?state=" + state
}

func (m *mockIdentity) Exchange(ctx context.Context, code, verifier string) (*models.Profile, error) {
	m.lastCode, m.lastVerif = code, verifier
	if m.err != nil {
		return nil, m.err
	}
	p := *m.profile
	return &p, nil
}

func (m *mockIdentity) ProfileFromAccessToken(ctx context.Context, accessToken string) (*models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p := *m.profile
	return &p, nil
}

type mockStates struct {
	states map[string]string
	next   int
}

func (m *mockStates) Issue(ctx context.Context, verifier string) (string, error) {
	if m.states == nil {
		m.states = map[string]string{}
	}
	m.next++
	state := "state-" + string(rune('0'+m.next))
	m.states[state] = verifier
	return state, nil
}

func (m *mockStates) Consume(ctx context.Context, state string) (string, error) {
	v, ok := m.states[state]
	if !ok {
		return "", storage.ErrUnknownOAuthState
	}
	delete(m.states, state)
	return v, nil
}

type stubBriefs struct{}

func (stubBriefs) LatestPDF(ctx context.Context) (*models.WorkspaceFile, error) {
	return &models.WorkspaceFile{ID: 7, FullURL: "https://files/7.pdf"}, nil
}

type stubTrending struct{}

func (stubTrending) Trending(ctx context.Context) (models.Trending, error) {
	return models.Trending{Coins: []models.TrendingCoin{{ID: "bitcoin", Symbol: "BTC"}}}, nil
}

func newTestSessionStore(clock *timer.FakeClock) *session.Store {
	return session.NewStore(session.Deps{
		Clock:         clock,
		Briefs:        stubBriefs{},
		Trending:      stubTrending{},
		SettingsDelay: 5 * time.Second,
		UpgradeDelay:  5 * time.Second,
		BannerDismiss: 4 * time.Second,
	})
}

// signedIn returns a session already logged in as email with tier
func signedIn(store *session.Store, email string, tier types.AccountTier) *session.Session {
	sess := store.Create()
	sess.Update(func(st *session.State) {
		st.Authenticated = true
		st.Profile = &models.Profile{ID: "g-1", Email: email, Name: "Ada"}
		st.Tier = tier
		st.Page = types.PageDashboard
	})
	return sess
}

func strPtr(s string) *string { return &s }
