// Package types provides common type definitions for the cryptobrief dashboard.
package types

import "strings"

// AccountTier represents the subscription level of an account
type AccountTier string

const (
	// TierBasic is the free tier: daily brief only
	TierBasic AccountTier = "basic"
	// TierPro unlocks personalized feeds, trending data and Telegram delivery
	TierPro AccountTier = "pro"
	// TierEnterprise unlocks everything Pro does plus X delivery
	TierEnterprise AccountTier = "enterprise"
)

// TierFromFlags derives the tier from the stored boolean flags.
// Enterprise wins over Pro when both are set.
func TierFromFlags(isPro, isEnterprise bool) AccountTier {
	switch {
	case isEnterprise:
		return TierEnterprise
	case isPro:
		return TierPro
	default:
		return TierBasic
	}
}

// CanViewFeeds reports whether the personalized feed section renders for the tier
func (t AccountTier) CanViewFeeds() bool {
	return t == TierPro || t == TierEnterprise
}

// CanViewTrending reports whether the trending market tab is available
func (t AccountTier) CanViewTrending() bool {
	return t.CanViewFeeds()
}

// Channels returns the delivery channels the tier unlocks, in display order
func (t AccountTier) Channels() []DeliveryChannel {
	switch t {
	case TierEnterprise:
		return []DeliveryChannel{ChannelEmail, ChannelTelegram, ChannelX}
	case TierPro:
		return []DeliveryChannel{ChannelEmail, ChannelTelegram}
	default:
		return []DeliveryChannel{ChannelEmail}
	}
}

// HasChannel reports whether the tier unlocks the given delivery channel
func (t AccountTier) HasChannel(channel DeliveryChannel) bool {
	for _, c := range t.Channels() {
		if c == channel {
			return true
		}
	}
	return false
}

// DeliveryChannel is a destination for the daily brief
type DeliveryChannel string

const (
	ChannelEmail    DeliveryChannel = "email"
	ChannelTelegram DeliveryChannel = "telegram"
	ChannelX        DeliveryChannel = "x"
)

// Page is the screen the session is currently routed to
type Page string

const (
	PageLogin      Page = "login"
	PageOnboarding Page = "onboarding"
	PageDashboard  Page = "dashboard"
	PageUpgrade    Page = "upgrade"
	PageError      Page = "error"
)

// FeedTab identifies a tab of the personalized feed section
type FeedTab string

const (
	TabWatchlist FeedTab = "watchlist"
	TabSector    FeedTab = "sector"
	TabNarrative FeedTab = "narrative"
	TabTrending  FeedTab = "trending"
)

// ParseFeedTab parses a tab name, case-insensitively
func ParseFeedTab(s string) (FeedTab, bool) {
	switch FeedTab(strings.ToLower(strings.TrimSpace(s))) {
	case TabWatchlist:
		return TabWatchlist, true
	case TabSector:
		return TabSector, true
	case TabNarrative:
		return TabNarrative, true
	case TabTrending:
		return TabTrending, true
	default:
		return "", false
	}
}

// Severity is the flavour of a banner notification
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// LoadStatus is the state of an asynchronous fetch shown in the UI.
// The states are mutually exclusive.
type LoadStatus string

const (
	StatusIdle     LoadStatus = "idle"
	StatusLoading  LoadStatus = "loading"
	StatusReady    LoadStatus = "ready"
	StatusNotFound LoadStatus = "not_found"
	StatusError    LoadStatus = "error"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
