// Package models provides data models for the cryptobrief dashboard.
package models

import (
	"strings"
	"time"

	"github.com/cryptobrief/internal/types"
)

// Telegram update cadence bounds, in hours
const (
	MinTeleUpdateRate = 1
	MaxTeleUpdateRate = 24
)

// UserAccount is the persisted row for one user, keyed by email
type UserAccount struct {
	Email               string           `json:"email" db:"email"`
	Preferences         *UserPreferences `json:"preferences" db:"preferences"`
	TelegramID          *string          `json:"telegramId" db:"telegram_id"`
	TeleUpdateRate      int              `json:"teleUpdateRate" db:"tele_update_rate"`
	IsPro               bool             `json:"isPro" db:"is_pro"`
	IsEnterprise        bool             `json:"isEnterprise" db:"is_enterprise"`
	WatchlistNews       *string          `json:"watchlistNews" db:"watchlist_news"`
	SectorNews          *string          `json:"sectorNews" db:"sector_news"`
	NarrativeNews       *string          `json:"narrativeNews" db:"narrative_news"`
	PreferenceUpdatedAt *time.Time       `json:"preferenceUpdatedAt" db:"preference_updated_at"`
}

// NewUserAccount returns the record created on a user's first login
func NewUserAccount(email string) *UserAccount {
	return &UserAccount{
		Email:          email,
		TeleUpdateRate: MinTeleUpdateRate,
	}
}

// Tier derives the account tier from the stored flags
func (a *UserAccount) Tier() types.AccountTier {
	return types.TierFromFlags(a.IsPro, a.IsEnterprise)
}

// Feeds returns the personalized markdown blobs
func (a *UserAccount) Feeds() NewsFeeds {
	return NewsFeeds{
		Watchlist: a.WatchlistNews,
		Sector:    a.SectorNews,
		Narrative: a.NarrativeNews,
	}
}

// Telegram returns the stored Telegram delivery settings
func (a *UserAccount) Telegram() TelegramSettings {
	return TelegramSettings{
		TelegramID: a.TelegramID,
		UpdateRate: ClampTeleUpdateRate(a.TeleUpdateRate),
	}
}

// NewsFeeds holds the out-of-band generated markdown feeds. Any of them may be nil.
type NewsFeeds struct {
	Watchlist *string `json:"watchlist"`
	Sector    *string `json:"sector"`
	Narrative *string `json:"narrative"`
}

// IsEmpty reports whether no feed has been generated yet
func (f NewsFeeds) IsEmpty() bool {
	for _, feed := range []*string{f.Watchlist, f.Sector, f.Narrative} {
		if feed != nil && *feed != "" {
			return false
		}
	}
	return true
}

// ForTab returns the markdown for a feed tab, or nil when none is stored
func (f NewsFeeds) ForTab(tab types.FeedTab) *string {
	switch tab {
	case types.TabWatchlist:
		return f.Watchlist
	case types.TabSector:
		return f.Sector
	case types.TabNarrative:
		return f.Narrative
	default:
		return nil
	}
}

// TelegramSettings is the Telegram delivery configuration
type TelegramSettings struct {
	TelegramID *string `json:"telegramId"`
	UpdateRate int     `json:"updateRate"`
}

// NormalizeTelegramID trims the input; blank becomes nil
func NormalizeTelegramID(input string) *string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ClampTeleUpdateRate forces rate into [MinTeleUpdateRate, MaxTeleUpdateRate]
func ClampTeleUpdateRate(rate int) int {
	if rate < MinTeleUpdateRate {
		return MinTeleUpdateRate
	}
	if rate > MaxTeleUpdateRate {
		return MaxTeleUpdateRate
	}
	return rate
}

// Profile is the identity returned by the identity provider
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}
