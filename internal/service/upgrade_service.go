package service

import (
	"context"
	"time"

	"github.com/cryptobrief/internal/dashboard"
	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/types"
)

// redeemCode is the one accepted upgrade code. Matching is exact.
const redeemCode = "BOUNTY"

// Banner texts after a redemption
const (
	RedeemSuccessMessage = "Code redeemed successfully! You now have Pro access."
	WelcomeProMessage    = "Welcome to Pro! Your personalized news feed will be generated soon (usually within 15-20 minutes)."

	redeemNoticeDuration  = 5 * time.Second
	welcomeNoticeDuration = 7 * time.Second
)

// Feature is one line of a plan's feature list
type Feature struct {
	Name     string `json:"name"`
	Included bool   `json:"included"`
}

// Plan is a pricing card
type Plan struct {
	Tier        types.AccountTier       `json:"tier"`
	Name        string                  `json:"name"`
	Price       string                  `json:"price"`
	Description string                  `json:"description"`
	Channels    []types.DeliveryChannel `json:"channels"`
	Feeds       bool                    `json:"feeds"`
	Trending    bool                    `json:"trending"`
	Features    []Feature               `json:"features"`
	Current     bool                    `json:"current"`
}

// UpgradeService handles plan display and code redemption
type UpgradeService struct {
	accounts AccountStore
	logger   *logging.Logger
}

// NewUpgradeService creates a new upgrade service
func NewUpgradeService(accounts AccountStore, logger *logging.Logger) *UpgradeService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &UpgradeService{accounts: accounts, logger: logger}
}

// Plans returns the pricing cards, marking the session's current tier
func (s *UpgradeService) Plans(sess *session.Session) []Plan {
	current := sess.View().Tier
	plans := []Plan{
		{
			Tier:        types.TierBasic,
			Name:        "Free",
			Price:       "$0/mo",
			Description: "Get started with the daily brief.",
			Features: []Feature{
				{Name: "Personalized Daily Brief (Email)", Included: true},
				{Name: "Basic Sector/Narrative Tracking", Included: true},
				{Name: "Telegram Briefs"},
				{Name: "X (Twitter) Feed Integration"},
			},
		},
		{
			Tier:        types.TierPro,
			Name:        "Pro",
			Price:       "TBD/mo",
			Description: "For active traders and enthusiasts needing more depth.",
			Features: []Feature{
				{Name: "Everything in Free", Included: true},
				{Name: "Enhanced Daily Brief (Email/Telegram)", Included: true},
				{Name: "Personalized news feeds", Included: true},
				{Name: "Trending market data", Included: true},
				{Name: "X (Twitter) Feed Integration"},
			},
		},
		{
			Tier:        types.TierEnterprise,
			Name:        "Enterprise",
			Price:       "Contact Us",
			Description: "Custom solutions for funds, protocols, and power users.",
			Features: []Feature{
				{Name: "Everything in Pro", Included: true},
				{Name: "X (Twitter) Feed Integration", Included: true},
				{Name: "Dedicated Account Manager", Included: true},
			},
		},
	}

	for i := range plans {
		plans[i].Channels = plans[i].Tier.Channels()
		plans[i].Feeds = plans[i].Tier.CanViewFeeds()
		plans[i].Trending = plans[i].Tier.CanViewTrending()
		plans[i].Current = plans[i].Tier == current
	}
	return plans
}

// Redeem checks code and flips the account to Pro. A wrong code never
// reaches the store.
func (s *UpgradeService) Redeem(ctx context.Context, sess *session.Session, code string) (session.State, error) {
	email, err := requireUser(sess)
	if err != nil {
		return session.State{}, err
	}
	if code != redeemCode {
		return sess.View(), apperrors.NewValidationError("INVALID_CODE", "Invalid code entered.")
	}

	if err := s.accounts.SetPro(ctx, email); err != nil {
		s.logger.WithSession(sess.ID).WithError(err).Error("Failed to redeem upgrade code")
		return sess.View(), persistenceError("set pro", err)
	}

	previous := sess.View().Tier
	state := sess.Update(func(st *session.State) {
		if st.Tier != types.TierEnterprise {
			st.Tier = types.TierPro
		}
	})
	sess.UpgradeModal().Open(state.Tier)
	sess.Banner().Show(RedeemSuccessMessage, types.SeveritySuccess, redeemNoticeDuration)

	// New Pro accounts have no generated feeds yet
	if previous == types.TierBasic && state.Tier == types.TierPro && state.Feeds.IsEmpty() {
		sess.Banner().Show(WelcomeProMessage, types.SeverityInfo, welcomeNoticeDuration)
	}

	s.logger.WithField("email", email).Info("Upgrade code redeemed")
	return state, nil
}

// Modal returns the upgrade modal state
func (s *UpgradeService) Modal(sess *session.Session) dashboard.UpgradeModalView {
	return sess.UpgradeModal().View()
}

// CloseModal closes the upgrade modal once its countdown has elapsed
func (s *UpgradeService) CloseModal(sess *session.Session) (dashboard.UpgradeModalView, error) {
	modal := sess.UpgradeModal()
	if err := modal.Close(); err != nil {
		return modal.View(), apperrors.NewConflictError("MODAL_LOCKED", "Please wait before closing")
	}
	return modal.View(), nil
}
