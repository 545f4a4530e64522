package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cryptobrief/internal/models"
)

const accountColumns = `email, preferences, telegram_id, tele_update_rate, is_pro, is_enterprise,
	watchlist_news, sector_news, narrative_news, preference_updated_at`

// AccountRepository is the AccountStore backed by a direct Postgres connection
type AccountRepository struct {
	db *PostgresDB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *PostgresDB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByEmail retrieves an account by email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM user_accounts WHERE email = $1`

	var (
		account   models.UserAccount
		prefsJSON []byte
	)
	err := r.db.Pool().QueryRow(ctx, query, email).Scan(
		&account.Email,
		&prefsJSON,
		&account.TelegramID,
		&account.TeleUpdateRate,
		&account.IsPro,
		&account.IsEnterprise,
		&account.WatchlistNews,
		&account.SectorNews,
		&account.NarrativeNews,
		&account.PreferenceUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Preferences, err = models.DecodePreferences(prefsJSON)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Create inserts a new account, ignoring an existing row for the email
func (r *AccountRepository) Create(ctx context.Context, account *models.UserAccount) error {
	prefsJSON, err := models.EncodePreferences(account.Preferences)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_accounts (email, preferences, telegram_id, tele_update_rate, is_pro, is_enterprise)
		VALUES ($1, $2::jsonb, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING
	`
	_, err = r.db.Pool().Exec(ctx, query,
		account.Email,
		string(prefsJSON),
		account.TelegramID,
		models.ClampTeleUpdateRate(account.TeleUpdateRate),
		account.IsPro,
		account.IsEnterprise,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// SavePreferences upserts the preferences column
func (r *AccountRepository) SavePreferences(ctx context.Context, email string, prefs *models.UserPreferences, updatedAt time.Time) error {
	prefsJSON, err := models.EncodePreferences(prefs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_accounts (email, preferences, preference_updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (email) DO UPDATE SET
			preferences = EXCLUDED.preferences,
			preference_updated_at = EXCLUDED.preference_updated_at
	`
	if _, err := r.db.Pool().Exec(ctx, query, email, string(prefsJSON), updatedAt); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// UpdateTelegramSettings stores the Telegram id and cadence
func (r *AccountRepository) UpdateTelegramSettings(ctx context.Context, email string, telegramID *string, rate int) error {
	query := `UPDATE user_accounts SET telegram_id = $2, tele_update_rate = $3 WHERE email = $1`
	return r.execUpdate(ctx, "update telegram settings", query, email, telegramID, models.ClampTeleUpdateRate(rate))
}

// SetPro flips the pro flag on
func (r *AccountRepository) SetPro(ctx context.Context, email string) error {
	query := `UPDATE user_accounts SET is_pro = TRUE WHERE email = $1`
	return r.execUpdate(ctx, "set pro", query, email)
}

// Ping checks the connection
func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *AccountRepository) execUpdate(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Pool().Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
