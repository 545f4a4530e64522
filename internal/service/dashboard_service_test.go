package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/timer"
	"github.com/cryptobrief/internal/types"
)

func TestDashboardService_ViewMountsBrief(t *testing.T) {
	svc := NewDashboardService()
	sess := signedIn(newTestSessionStore(timer.NewFakeClock(time.Unix(0, 0))), "ada@example.com", types.TierBasic)
	sess.Update(func(st *session.State) {
		st.Feeds = models.NewsFeeds{Watchlist: strPtr("secret pro content")}
	})

	_, err := svc.View(sess)
	require.NoError(t, err)
	sess.Dashboard().Wait()

	view, err := svc.View(sess)
	require.NoError(t, err)
	assert.Equal(t, types.StatusReady, view.Brief.Status)
	assert.Equal(t, "https://files/7.pdf", view.Brief.URL)
	assert.Nil(t, view.Feed)
	assert.NotNil(t, view.Upsell)
	assert.Equal(t, []types.DeliveryChannel{types.ChannelEmail}, view.Channels)
}

func TestDashboardService_SelectTab(t *testing.T) {
	svc := NewDashboardService()
	sess := signedIn(newTestSessionStore(timer.NewFakeClock(time.Unix(0, 0))), "ada@example.com", types.TierPro)

	view, err := svc.SelectTab(sess, types.TabTrending)
	require.NoError(t, err)
	require.NotNil(t, view.Feed)
	assert.Equal(t, types.TabTrending, view.Feed.ActiveTab)

	sess.Dashboard().Wait()
	view, err = svc.View(sess)
	require.NoError(t, err)
	require.NotNil(t, view.Feed.Trending)
	assert.Equal(t, types.StatusReady, view.Feed.Trending.Status)

	basic := signedIn(newTestSessionStore(timer.NewFakeClock(time.Unix(0, 0))), "bob@example.com", types.TierBasic)
	_, err = svc.SelectTab(basic, types.TabWatchlist)
	assert.Equal(t, http.StatusForbidden, apperrors.GetHTTPStatusCode(err))
}

func TestSettingsService_Channels(t *testing.T) {
	svc := NewSettingsService(newMockAccountStore(), nil)
	store := newTestSessionStore(timer.NewFakeClock(time.Unix(0, 0)))

	tests := []struct {
		tier     types.AccountTier
		telegram bool
		x        bool
	}{
		{types.TierBasic, false, false},
		{types.TierPro, true, false},
		{types.TierEnterprise, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			sess := signedIn(store, "ada@example.com", tt.tier)
			view, err := svc.Channels(sess)
			require.NoError(t, err)
			assert.True(t, view.Email.Available)
			assert.Equal(t, "ada@example.com", *view.Email.Address)
			assert.Equal(t, tt.telegram, view.Telegram.Available)
			assert.Equal(t, tt.x, view.X.Available)
		})
	}
}

func TestSettingsService_TelegramFlow(t *testing.T) {
	clock := timer.NewFakeClock(time.Unix(0, 0))
	accounts := newMockAccountStore()
	accounts.accounts["ada@example.com"] = models.NewUserAccount("ada@example.com")
	svc := NewSettingsService(accounts, nil)
	sess := signedIn(newTestSessionStore(clock), "ada@example.com", types.TierPro)
	ctx := context.Background()

	modal, err := svc.OpenTelegram(sess)
	require.NoError(t, err)
	assert.False(t, modal.SaveEnabled)
	assert.Equal(t, 5, modal.RemainingSeconds)

	_, err = svc.SaveTelegram(ctx, sess, "@ada", 12)
	assert.Equal(t, "SAVE_LOCKED", apperrors.Categorize(err).Code)
	assert.Zero(t, accounts.callCount("UpdateTelegramSettings"))

	clock.Advance(5 * time.Second)
	modal, err = svc.SaveTelegram(ctx, sess, " @ada ", 12)
	require.NoError(t, err)
	assert.False(t, modal.Open)

	state := sess.View()
	assert.Equal(t, "@ada", *state.Telegram.TelegramID)
	assert.Equal(t, 12, state.Telegram.UpdateRate)
	assert.Equal(t, "@ada", *accounts.accounts["ada@example.com"].TelegramID)
	assert.Equal(t, "Telegram settings saved", sess.Banner().Current().Message)
}

func TestSettingsService_TelegramSaveFailure(t *testing.T) {
	clock := timer.NewFakeClock(time.Unix(0, 0))
	accounts := newMockAccountStore()
	accounts.teleErr = errors.New("write failed")
	svc := NewSettingsService(accounts, nil)
	sess := signedIn(newTestSessionStore(clock), "ada@example.com", types.TierEnterprise)

	_, err := svc.OpenTelegram(sess)
	require.NoError(t, err)
	clock.Advance(5 * time.Second)

	modal, err := svc.SaveTelegram(context.Background(), sess, "@ada", 3)
	require.Error(t, err)
	assert.True(t, modal.Open)
	require.NotNil(t, modal.Error)
	assert.Equal(t, types.SeverityError, sess.Banner().Current().Severity)
	assert.Nil(t, sess.View().Telegram.TelegramID, "session unchanged on failure")
}

func TestSettingsService_TelegramRequiresPro(t *testing.T) {
	svc := NewSettingsService(newMockAccountStore(), nil)
	sess := signedIn(newTestSessionStore(timer.NewFakeClock(time.Unix(0, 0))), "ada@example.com", types.TierBasic)

	_, err := svc.OpenTelegram(sess)
	assert.Equal(t, http.StatusForbidden, apperrors.GetHTTPStatusCode(err))
	assert.False(t, sess.TelegramModal().IsOpen())
}

func TestDashboardService_Navigate(t *testing.T) {
	svc := NewDashboardService()
	sess := signedIn(newTestSessionStore(timer.NewFakeClock(time.Unix(0, 0))), "ada@example.com", types.TierBasic)

	state, err := svc.Navigate(sess, types.PageUpgrade)
	require.NoError(t, err)
	assert.Equal(t, types.PageOnboarding, state.Page, "no preferences yet")

	sess.Update(func(st *session.State) {
		st.Preferences = &models.UserPreferences{SelectedSectors: models.SelectionSet{"AI"}}
	})
	state, err = svc.Navigate(sess, types.PageUpgrade)
	require.NoError(t, err)
	assert.Equal(t, types.PageUpgrade, state.Page)

	state, err = svc.Navigate(sess, types.PageDashboard)
	require.NoError(t, err)
	assert.Equal(t, types.PageDashboard, state.Page)

	_, err = svc.Navigate(sess, types.PageLogin)
	assert.Equal(t, http.StatusBadRequest, apperrors.GetHTTPStatusCode(err))
}
