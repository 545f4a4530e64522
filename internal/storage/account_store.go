package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cryptobrief/internal/models"
)

// ErrAccountNotFound is returned when no row exists for an email
var ErrAccountNotFound = errors.New("account not found")

// AccountStore persists user accounts keyed by email. Writes are last-write-wins;
// no two mutations are coordinated.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	// Create inserts the account; an existing row for the email is left untouched
	Create(ctx context.Context, account *models.UserAccount) error
	// SavePreferences upserts the preferences, replacing them wholesale.
	// Nil is stored as an empty object.
	SavePreferences(ctx context.Context, email string, prefs *models.UserPreferences, updatedAt time.Time) error
	UpdateTelegramSettings(ctx context.Context, email string, telegramID *string, rate int) error
	SetPro(ctx context.Context, email string) error
	Ping(ctx context.Context) error
}
