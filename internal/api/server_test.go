package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptobrief/internal/brief"
	"github.com/cryptobrief/internal/circuitbreaker"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/service"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/storage"
	"github.com/cryptobrief/internal/timer"
	"github.com/cryptobrief/internal/types"
)

const testPublicURL = "http://app.example"

// In-memory collaborators for testing

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.UserAccount
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	copied := *a
	copied.Preferences = a.Preferences.Clone()
	return &copied, nil
}

func (m *memAccounts) Create(ctx context.Context, account *models.UserAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *account
	m.accounts[account.Email] = &copied
	return nil
}

func (m *memAccounts) SavePreferences(ctx context.Context, email string, prefs *models.UserPreferences, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return storage.ErrAccountNotFound
	}
	a.Preferences = prefs.Clone()
	a.PreferenceUpdatedAt = &updatedAt
	return nil
}

func (m *memAccounts) UpdateTelegramSettings(ctx context.Context, email string, telegramID *string, rate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return storage.ErrAccountNotFound
	}
	a.TelegramID = telegramID
	a.TeleUpdateRate = rate
	return nil
}

func (m *memAccounts) SetPro(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return storage.ErrAccountNotFound
	}
	a.IsPro = true
	return nil
}

type fakeIdentity struct {
	email string
}

func (f *fakeIdentity) Configured() bool    { return true }
func (f *fakeIdentity) NewVerifier() string { return "verifier" }

func (f *fakeIdentity) AuthCodeURL(state, verifier string) string {
	return "https://accounts.example/auth?state=" + state
}

func (f *fakeIdentity) Exchange(ctx context.Context, code, verifier string) (*models.Profile, error) {
	if code == "" || verifier != "verifier" {
		return nil, errors.New("bad exchange")
	}
	return &models.Profile{ID: "g-1", Email: f.email, Name: "Ada"}, nil
}

func (f *fakeIdentity) ProfileFromAccessToken(ctx context.Context, accessToken string) (*models.Profile, error) {
	return &models.Profile{ID: "g-1", Email: f.email, Name: "Ada"}, nil
}

type fakeWorkspace struct {
	files   []models.WorkspaceFile
	listErr error
}

func (f *fakeWorkspace) ListFiles(ctx context.Context) ([]models.WorkspaceFile, error) {
	return f.files, f.listErr
}

func (f *fakeWorkspace) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	body := "%PDF-1.4 " + url
	return io.NopCloser(strings.NewReader(body)), int64(len(body)), nil
}

type fakeTrending struct{}

func (fakeTrending) Trending(ctx context.Context) (models.Trending, error) {
	return models.Trending{
		Coins:      []models.TrendingCoin{{ID: "pepe", Name: "Pepe", Symbol: "PEPE", Score: 0}},
		Categories: []models.TrendingCategory{{ID: 1, Name: "Meme", Slug: "meme-token", CoinsCount: 300}},
	}, nil
}

type testEnv struct {
	server    *Server
	clock     *timer.FakeClock
	sessions  *session.Store
	accounts  *memAccounts
	workspace *fakeWorkspace
	checkErr  error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logging.New(logging.LevelError, logging.FormatJSON, io.Discard)
	env := &testEnv{
		clock:    timer.NewFakeClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		accounts: &memAccounts{accounts: map[string]*models.UserAccount{}},
		workspace: &fakeWorkspace{files: []models.WorkspaceFile{
			{ID: 3, Path: "briefs/old.pdf", FullURL: "https://files.example/3.pdf"},
			{ID: 7, Path: "briefs/today.pdf", FullURL: "https://files.example/7.pdf"},
			{ID: 9, Path: "notes.txt", FullURL: "https://files.example/9.txt"},
		}},
	}

	breakers := circuitbreaker.NewManager()
	briefs := brief.NewService(env.workspace, breakers.GetOrCreate("openserv", nil))
	env.sessions = session.NewStore(session.Deps{
		Clock:    env.clock,
		Briefs:   briefs,
		Trending: fakeTrending{},
		Logger:   logger,
	})
	t.Cleanup(env.sessions.Close)

	states := storage.NewOAuthStateStore(client, time.Minute)
	env.server = NewServer(&ServerConfig{
		Host:      "127.0.0.1",
		Port:      "0",
		PublicURL: testPublicURL,
	}, Services{
		Sessions:   env.sessions,
		Briefs:     briefs,
		Auth:       service.NewAuthService(env.accounts, &fakeIdentity{email: "ada@example.com"}, states, logger),
		Onboarding: service.NewOnboardingService(env.accounts, env.clock, logger),
		Dashboard:  service.NewDashboardService(),
		Settings:   service.NewSettingsService(env.accounts, logger),
		Upgrade:    service.NewUpgradeService(env.accounts, logger),
		Breakers:   breakers,
		Checks: map[string]HealthCheck{
			"store": func(ctx context.Context) error { return env.checkErr },
		},
	}, logger)

	return env
}

// do sends a request, carrying cookie when set
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// session returns the server-side session behind cookie
func (e *testEnv) session(t *testing.T, cookie *http.Cookie) *session.Session {
	t.Helper()
	sess, ok := e.sessions.Get(cookie.Value)
	require.True(t, ok)
	return sess
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookie)
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	return resp
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "cryptobrief", resp.Service)
	assert.Equal(t, "ok", resp.Checks["store"])
	require.Len(t, resp.Breakers, 1)
	assert.Equal(t, "openserv", resp.Breakers[0].Name)

	env.checkErr = errors.New("connection refused")
	rec = env.do(t, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	decodeBody(t, rec, &resp)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["store"])
}

func TestSessionCookieIssuedOnce(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/session", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookieFrom(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	var resp SessionResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, types.PageLogin, resp.Page)
	assert.False(t, resp.Authenticated)

	rec = env.do(t, "GET", "/api/session", nil, cookie)
	assert.Empty(t, rec.Result().Cookies(), "known session keeps its cookie")
	assert.Equal(t, 1, env.sessions.Len())
}

func TestMiddleware_CORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	req.Header.Set("Origin", testPublicURL)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testPublicURL, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddleware_Compression(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	gz, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	var resp healthResponse
	require.NoError(t, json.NewDecoder(gz).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestMiddleware_Recovery(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}
