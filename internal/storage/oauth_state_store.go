package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultOAuthStateTTL bounds how long a login redirect may take
const DefaultOAuthStateTTL = 10 * time.Minute

const oauthStatePrefix = "oauth:state:"

// ErrUnknownOAuthState is returned for a state that was never issued,
// already used, or expired
var ErrUnknownOAuthState = errors.New("unknown or expired oauth state")

// OAuthStateStore keeps single-use OAuth state tokens, each bound to its
// PKCE verifier
type OAuthStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOAuthStateStore creates a state store; ttl <= 0 uses the default
func NewOAuthStateStore(client *redis.Client, ttl time.Duration) *OAuthStateStore {
	if ttl <= 0 {
		ttl = DefaultOAuthStateTTL
	}
	return &OAuthStateStore{client: client, ttl: ttl}
}

// Issue stores verifier under a fresh state token and returns the token
func (s *OAuthStateStore) Issue(ctx context.Context, verifier string) (string, error) {
	state := uuid.NewString()
	ok, err := s.client.SetNX(ctx, oauthStatePrefix+state, verifier, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("oauth state collision")
	}
	return state, nil
}

// Consume returns the verifier for state and deletes it, so a state can be
// used once
func (s *OAuthStateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrUnknownOAuthState
	}
	verifier, err := s.client.GetDel(ctx, oauthStatePrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnknownOAuthState
	}
	if err != nil {
		return "", fmt.Errorf("failed to read oauth state: %w", err)
	}
	return verifier, nil
}
