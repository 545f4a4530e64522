package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOAuthStateStore(t *testing.T) (*OAuthStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewOAuthStateStore(client, time.Minute), mr
}

func TestOAuthStateStore_SingleUse(t *testing.T) {
	store, _ := setupOAuthStateStore(t)
	ctx := testContext(t)

	state, err := store.Issue(ctx, "verifier-1")
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	verifier, err := store.Consume(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "verifier-1", verifier)

	_, err = store.Consume(ctx, state)
	assert.ErrorIs(t, err, ErrUnknownOAuthState)
}

func TestOAuthStateStore_Expires(t *testing.T) {
	store, mr := setupOAuthStateStore(t)
	ctx := testContext(t)

	state, err := store.Issue(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(oauthStatePrefix+state))

	mr.FastForward(2 * time.Minute)
	_, err = store.Consume(ctx, state)
	assert.ErrorIs(t, err, ErrUnknownOAuthState)
}

func TestOAuthStateStore_UnknownState(t *testing.T) {
	store, _ := setupOAuthStateStore(t)
	ctx := testContext(t)

	_, err := store.Consume(ctx, "")
	assert.ErrorIs(t, err, ErrUnknownOAuthState)
	_, err = store.Consume(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrUnknownOAuthState)
}

func TestRedisDB_WrapsClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	db := NewRedisDBFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, db.Ping(testContext(t)))
	require.NoError(t, db.Close())
}
