// Package service implements the dashboard's use cases on top of a session:
// login, onboarding, the dashboard view, delivery settings and upgrades.
package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/storage"
	"github.com/cryptobrief/internal/wizard"
)

// AccountStore is the persistence the services need
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	Create(ctx context.Context, account *models.UserAccount) error
	SavePreferences(ctx context.Context, email string, prefs *models.UserPreferences, updatedAt time.Time) error
	UpdateTelegramSettings(ctx context.Context, email string, telegramID *string, rate int) error
	SetPro(ctx context.Context, email string) error
}

var _ AccountStore = (storage.AccountStore)(nil)

// requireUser returns the signed-in email or an authorization error
func requireUser(sess *session.Session) (string, error) {
	email := sess.View().Email()
	if email == "" {
		return "", apperrors.NewUnauthorizedError("sign in to continue")
	}
	return email, nil
}

// persistenceError maps a store failure to a categorized one. Upstream
// failures of the hosted store become a generic 500; the upstream status
// and body stay on the cause for the logs.
func persistenceError(op string, err error) error {
	if errors.Is(err, storage.ErrAccountNotFound) {
		return apperrors.NewNotFoundError("ACCOUNT_NOT_FOUND", "account not found")
	}
	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) && catErr.Category != apperrors.CategoryUpstream {
		return err
	}
	return apperrors.NewDatabaseError(op, err)
}

// wizardError maps draft errors to categorized ones
func wizardError(err error) error {
	if err == nil {
		return nil
	}
	var vErr *wizard.ValidationError
	switch {
	case errors.As(err, &vErr):
		return apperrors.NewValidationError("STEP_INCOMPLETE", vErr.Message)
	case errors.Is(err, wizard.ErrSaving):
		return apperrors.NewConflictError("SAVE_IN_PROGRESS", err.Error())
	case errors.Is(err, wizard.ErrEmptyInput):
		return apperrors.NewValidationError("EMPTY_ENTRY", err.Error())
	case errors.Is(err, wizard.ErrDuplicate):
		return apperrors.NewValidationError("DUPLICATE_ENTRY", err.Error())
	case errors.Is(err, wizard.ErrUnknownSet):
		return apperrors.NewInvalidParameterError("set", err.Error())
	case errors.Is(err, wizard.ErrNotFinalStep):
		return apperrors.NewValidationError("NOT_FINAL_STEP", err.Error())
	default:
		return apperrors.NewInternalError("wizard operation failed", err)
	}
}
