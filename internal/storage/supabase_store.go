package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/models"
)

const (
	supabaseProvider = "supabase"
	accountsTable    = "user_accounts"
)

// SupabaseStore is the AccountStore backed by the hosted REST API
type SupabaseStore struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// NewSupabaseStore creates a REST store for the project at baseURL
func NewSupabaseStore(baseURL, anonKey string) (*SupabaseStore, error) {
	if baseURL == "" || anonKey == "" {
		return nil, fmt.Errorf("supabase url and anon key are required")
	}
	return &SupabaseStore{
		baseURL: baseURL,
		anonKey: anonKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// accountRow is the wire shape of a user_accounts row
type accountRow struct {
	Email               string          `json:"email"`
	Preferences         json.RawMessage `json:"preferences,omitempty"`
	TelegramID          *string         `json:"telegram_id"`
	TeleUpdateRate      int             `json:"tele_update_rate"`
	IsPro               bool            `json:"is_pro"`
	IsEnterprise        bool            `json:"is_enterprise"`
	WatchlistNews       *string         `json:"watchlist_news"`
	SectorNews          *string         `json:"sector_news"`
	NarrativeNews       *string         `json:"narrative_news"`
	PreferenceUpdatedAt *time.Time      `json:"preference_updated_at"`
}

func (r accountRow) toModel() (*models.UserAccount, error) {
	prefs, err := models.DecodePreferences(r.Preferences)
	if err != nil {
		return nil, err
	}
	return &models.UserAccount{
		Email:               r.Email,
		Preferences:         prefs,
		TelegramID:          r.TelegramID,
		TeleUpdateRate:      r.TeleUpdateRate,
		IsPro:               r.IsPro,
		IsEnterprise:        r.IsEnterprise,
		WatchlistNews:       r.WatchlistNews,
		SectorNews:          r.SectorNews,
		NarrativeNews:       r.NarrativeNews,
		PreferenceUpdatedAt: r.PreferenceUpdatedAt,
	}, nil
}

// GetByEmail retrieves an account by email
func (s *SupabaseStore) GetByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	q := url.Values{}
	q.Set("email", "eq."+email)
	q.Set("select", "*")

	var rows []accountRow
	if err := s.do(ctx, http.MethodGet, q, nil, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrAccountNotFound
	}
	return rows[0].toModel()
}

// Create inserts a new account, ignoring an existing row for the email
func (s *SupabaseStore) Create(ctx context.Context, account *models.UserAccount) error {
	prefs, err := models.EncodePreferences(account.Preferences)
	if err != nil {
		return err
	}
	row := map[string]any{
		"email":            account.Email,
		"preferences":      json.RawMessage(prefs),
		"telegram_id":      account.TelegramID,
		"tele_update_rate": models.ClampTeleUpdateRate(account.TeleUpdateRate),
		"is_pro":           account.IsPro,
		"is_enterprise":    account.IsEnterprise,
	}

	q := url.Values{}
	q.Set("on_conflict", "email")
	headers := map[string]string{"Prefer": "resolution=ignore-duplicates,return=minimal"}
	return s.do(ctx, http.MethodPost, q, headers, row, nil)
}

// SavePreferences upserts the preferences, merging on the email key
func (s *SupabaseStore) SavePreferences(ctx context.Context, email string, prefs *models.UserPreferences, updatedAt time.Time) error {
	data, err := models.EncodePreferences(prefs)
	if err != nil {
		return err
	}
	row := map[string]any{
		"email":                 email,
		"preferences":           json.RawMessage(data),
		"preference_updated_at": updatedAt.UTC(),
	}

	q := url.Values{}
	q.Set("on_conflict", "email")
	headers := map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"}
	return s.do(ctx, http.MethodPost, q, headers, row, nil)
}

// UpdateTelegramSettings stores the Telegram id and cadence
func (s *SupabaseStore) UpdateTelegramSettings(ctx context.Context, email string, telegramID *string, rate int) error {
	return s.patch(ctx, email, map[string]any{
		"telegram_id":      telegramID,
		"tele_update_rate": models.ClampTeleUpdateRate(rate),
	})
}

// SetPro flips the pro flag on
func (s *SupabaseStore) SetPro(ctx context.Context, email string) error {
	return s.patch(ctx, email, map[string]any{"is_pro": true})
}

// Ping checks that the REST endpoint answers for the table
func (s *SupabaseStore) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "email")
	q.Set("limit", "1")
	var rows []accountRow
	return s.do(ctx, http.MethodGet, q, nil, nil, &rows)
}

func (s *SupabaseStore) patch(ctx context.Context, email string, fields map[string]any) error {
	q := url.Values{}
	q.Set("email", "eq."+email)
	q.Set("select", "email")
	headers := map[string]string{"Prefer": "return=representation"}

	var rows []accountRow
	if err := s.do(ctx, http.MethodPatch, q, headers, fields, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *SupabaseStore) do(ctx context.Context, method string, query url.Values, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, accountsTable, query.Encode())
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+s.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.NewUpstreamFailureError(supabaseProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return apperrors.NewUpstreamStatusError(supabaseProvider, resp.StatusCode, string(msg))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewMalformedResponseError(supabaseProvider, err)
	}
	return nil
}
