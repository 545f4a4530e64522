package session

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/timer"
	"github.com/cryptobrief/internal/types"
	"github.com/cryptobrief/internal/wizard"
)

type stubBriefs struct{}

func (stubBriefs) LatestPDF(ctx context.Context) (*models.WorkspaceFile, error) {
	return &models.WorkspaceFile{ID: 1, FullURL: "https://files/1.pdf"}, nil
}

type stubTrending struct{}

func (stubTrending) Trending(ctx context.Context) (models.Trending, error) {
	return models.Trending{}, nil
}

func newTestStore(clock *timer.FakeClock) *Store {
	return NewStore(Deps{
		Clock:         clock,
		Briefs:        stubBriefs{},
		Trending:      stubTrending{},
		SettingsDelay: 5 * time.Second,
		UpgradeDelay:  5 * time.Second,
		BannerDismiss: 4 * time.Second,
	})
}

func strPtr(s string) *string { return &s }

func TestStore_CreateGetDestroy(t *testing.T) {
	clock := timer.NewFakeClock(time.Unix(1000, 0))
	store := newTestStore(clock)

	s := store.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, DefaultState(), s.View())

	got, ok := store.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	store.Destroy(s.ID)
	_, ok = store.Get(s.ID)
	assert.False(t, ok)
	assert.Error(t, s.Context().Err(), "context cancelled on destroy")

	store.Destroy("unknown")
	assert.Equal(t, 0, store.Len())
}

func TestSession_ApplyAccount(t *testing.T) {
	store := newTestStore(timer.NewFakeClock(time.Unix(0, 0)))
	s := store.Create()

	updated := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	account := &models.UserAccount{
		Email:               "ada@example.com",
		Preferences:         &models.UserPreferences{WatchlistItems: models.SelectionSet{"BTC"}},
		TelegramID:          strPtr("@ada"),
		TeleUpdateRate:      30,
		IsPro:               true,
		IsEnterprise:        true,
		SectorNews:          strPtr("sector"),
		PreferenceUpdatedAt: &updated,
	}

	state := s.Update(func(st *State) {
		st.Authenticated = true
		st.Profile = &models.Profile{Email: account.Email}
		st.ApplyAccount(account)
	})

	assert.Equal(t, types.TierEnterprise, state.Tier)
	assert.Equal(t, "ada@example.com", state.Email())
	assert.Equal(t, 24, state.Telegram.UpdateRate)
	assert.Equal(t, "sector", *state.Feeds.Sector)
	assert.Nil(t, state.Feeds.Watchlist)

	// Views are copies
	state.Preferences.WatchlistItems.Add("ETH")
	assert.Equal(t, models.SelectionSet{"BTC"}, s.View().Preferences.WatchlistItems)
	account.Preferences.WatchlistItems.Add("SOL")
	assert.Equal(t, models.SelectionSet{"BTC"}, s.View().Preferences.WatchlistItems)
}

func TestSession_UpdateLastWriteWins(t *testing.T) {
	store := newTestStore(timer.NewFakeClock(time.Unix(0, 0)))
	s := store.Create()

	var wg sync.WaitGroup
	for i := 1; i <= 24; i++ {
		wg.Add(1)
		go func(rate int) {
			defer wg.Done()
			s.Update(func(st *State) { st.Telegram.UpdateRate = rate })
		}(i)
	}
	wg.Wait()

	rate := s.View().Telegram.UpdateRate
	assert.GreaterOrEqual(t, rate, 1)
	assert.LessOrEqual(t, rate, 24)
}

func TestSession_ResetWizardSeeds(t *testing.T) {
	store := newTestStore(timer.NewFakeClock(time.Unix(0, 0)))
	s := store.Create()

	w := s.ResetWizard(&models.UserPreferences{SelectedSectors: models.SelectionSet{"DeFi"}})
	assert.Same(t, w, s.Wizard())
	assert.Equal(t, models.SelectionSet{"DeFi"}, w.Snapshot().Sectors)

	w = s.ResetWizard(nil)
	assert.Empty(t, w.Snapshot().Sectors)
	assert.Equal(t, int(wizard.StepWelcome), w.Snapshot().Step)
}

func TestSession_ResetStopsTimers(t *testing.T) {
	clock := timer.NewFakeClock(time.Unix(0, 0))
	store := newTestStore(clock)
	s := store.Create()

	s.Update(func(st *State) {
		st.Authenticated = true
		st.Tier = types.TierPro
		st.Page = types.PageDashboard
	})
	s.TelegramModal().Open(models.TelegramSettings{UpdateRate: 2})
	s.UpgradeModal().Open(types.TierPro)
	s.Banner().Success("Saved")
	oldDash := s.Dashboard()
	require.Equal(t, 3, clock.Pending())

	s.Reset(types.PageError, "Login failed")

	assert.Equal(t, 0, clock.Pending())
	state := s.View()
	assert.False(t, state.Authenticated)
	assert.Equal(t, types.PageError, state.Page)
	assert.Equal(t, "Login failed", state.ErrorMessage)
	assert.Equal(t, types.TierBasic, state.Tier)
	assert.NotSame(t, oldDash, s.Dashboard())
	assert.Nil(t, s.Banner().Current())
	assert.False(t, s.TelegramModal().IsOpen())
	assert.False(t, s.UpgradeModal().IsOpen())
}

func TestStore_PruneIdle(t *testing.T) {
	clock := timer.NewFakeClock(time.Unix(0, 0))
	store := newTestStore(clock)

	stale := store.Create()
	clock.Advance(time.Hour)
	fresh := store.Create()

	clock.Advance(30 * time.Minute)
	_, _ = store.Get(fresh.ID)

	pruned := store.PruneIdle(clock.Now(), time.Hour)
	assert.Equal(t, 1, pruned)
	_, ok := store.Get(stale.ID)
	assert.False(t, ok)
	_, ok = store.Get(fresh.ID)
	assert.True(t, ok)

	store.Close()
	assert.Equal(t, 0, store.Len())
}

func TestStore_PruneIdleLogsOnce(t *testing.T) {
	clock := timer.NewFakeClock(time.Unix(0, 0))
	var buf bytes.Buffer
	store := NewStore(Deps{
		Clock:    clock,
		Briefs:   stubBriefs{},
		Trending: stubTrending{},
		Logger:   logging.New(logging.LevelInfo, logging.FormatJSON, &buf),
	})
	defer store.Close()

	store.Create()
	store.Create()
	assert.Zero(t, store.PruneIdle(clock.Now(), time.Hour))
	assert.NotContains(t, buf.String(), "Pruned idle sessions")

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 2, store.PruneIdle(clock.Now(), time.Hour))
	assert.Equal(t, 1, strings.Count(buf.String(), "Pruned idle sessions"))
	assert.Contains(t, buf.String(), `"count":2`)
}
