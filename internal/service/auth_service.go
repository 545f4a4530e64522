package service

import (
	"context"
	"errors"

	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/storage"
	"github.com/cryptobrief/internal/types"
)

// LoginFailedMessage is shown on the error page after a failed login
const LoginFailedMessage = "We couldn't sign you in. Please try again."

// IdentityProvider resolves a Google identity
type IdentityProvider interface {
	Configured() bool
	NewVerifier() string
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*models.Profile, error)
	ProfileFromAccessToken(ctx context.Context, accessToken string) (*models.Profile, error)
}

// OAuthStateStore keeps single-use login states
type OAuthStateStore interface {
	Issue(ctx context.Context, verifier string) (string, error)
	Consume(ctx context.Context, state string) (string, error)
}

// AuthService signs users in and routes them to onboarding or the dashboard
type AuthService struct {
	accounts AccountStore
	identity IdentityProvider
	states   OAuthStateStore
	logger   *logging.Logger
}

// NewAuthService creates a new auth service. states may be nil when only
// the token flow is used.
func NewAuthService(accounts AccountStore, identity IdentityProvider, states OAuthStateStore, logger *logging.Logger) *AuthService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &AuthService{accounts: accounts, identity: identity, states: states, logger: logger}
}

// BeginLogin returns the Google consent URL for a fresh single-use state
func (s *AuthService) BeginLogin(ctx context.Context) (string, error) {
	if !s.identity.Configured() {
		return "", apperrors.NewConfigurationError("GOOGLE_CLIENT_ID")
	}
	if s.states == nil {
		return "", apperrors.NewConfigurationError("REDIS_HOST")
	}

	verifier := s.identity.NewVerifier()
	state, err := s.states.Issue(ctx, verifier)
	if err != nil {
		return "", apperrors.NewInternalError("failed to start login", err)
	}
	return s.identity.AuthCodeURL(state, verifier), nil
}

// CompleteLogin finishes the redirect flow
func (s *AuthService) CompleteLogin(ctx context.Context, sess *session.Session, state, code string) (session.State, error) {
	if s.states == nil {
		return s.fail(sess, apperrors.NewConfigurationError("REDIS_HOST"))
	}
	verifier, err := s.states.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, storage.ErrUnknownOAuthState) {
			return s.fail(sess, apperrors.NewUnauthorizedError("login request expired or was already used"))
		}
		return s.fail(sess, apperrors.NewInternalError("failed to verify login", err))
	}
	if code == "" {
		return s.fail(sess, apperrors.NewUnauthorizedError("missing authorization code"))
	}

	profile, err := s.identity.Exchange(ctx, code, verifier)
	if err != nil {
		return s.fail(sess, err)
	}
	return s.login(ctx, sess, profile)
}

// LoginWithAccessToken signs in with a token obtained by the browser
func (s *AuthService) LoginWithAccessToken(ctx context.Context, sess *session.Session, accessToken string) (session.State, error) {
	profile, err := s.identity.ProfileFromAccessToken(ctx, accessToken)
	if err != nil {
		return s.fail(sess, err)
	}
	return s.login(ctx, sess, profile)
}

// login loads or creates the account and populates the session
func (s *AuthService) login(ctx context.Context, sess *session.Session, profile *models.Profile) (session.State, error) {
	account, err := s.accounts.GetByEmail(ctx, profile.Email)
	if errors.Is(err, storage.ErrAccountNotFound) {
		account = models.NewUserAccount(profile.Email)
		if err = s.accounts.Create(ctx, account); err != nil {
			return s.fail(sess, persistenceError("create account", err))
		}
		s.logger.WithField("email", profile.Email).Info("Created account on first login")
	} else if err != nil {
		return s.fail(sess, persistenceError("load account", err))
	}

	page := types.PageDashboard
	if account.Preferences == nil {
		page = types.PageOnboarding
	}

	sess.ResetWizard(nil)
	state := sess.Update(func(st *session.State) {
		*st = session.DefaultState()
		st.Authenticated = true
		st.Profile = profile
		st.ApplyAccount(account)
		st.Page = page
	})

	s.logger.WithSession(sess.ID).WithFields(map[string]interface{}{
		"email": profile.Email,
		"tier":  state.Tier,
		"page":  state.Page,
	}).Info("User signed in")
	return state, nil
}

// fail forces a logout and routes the session to the error page
func (s *AuthService) fail(sess *session.Session, err error) (session.State, error) {
	s.logger.WithSession(sess.ID).WithError(err).Warn("Login failed")
	sess.Reset(types.PageError, LoginFailedMessage)
	return sess.View(), err
}

// Logout clears the session back to the login page
func (s *AuthService) Logout(store *session.Store, sess *session.Session) {
	email := sess.View().Email()
	store.Destroy(sess.ID)
	if email != "" {
		s.logger.WithField("email", email).Info("User signed out")
	}
}
