package service

import (
	"github.com/cryptobrief/internal/dashboard"
	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/types"
)

// DashboardView is the dashboard page
type DashboardView struct {
	dashboard.View
	Profile  *models.Profile         `json:"profile"`
	Tier     types.AccountTier       `json:"tier"`
	Channels []types.DeliveryChannel `json:"channels"`
}

// DashboardService serves the dashboard page
type DashboardService struct{}

// NewDashboardService creates a new dashboard service
func NewDashboardService() *DashboardService {
	return &DashboardService{}
}

// View mounts the dashboard, which starts the brief fetch on first view, and
// renders it for the session's tier
func (s *DashboardService) View(sess *session.Session) (DashboardView, error) {
	if _, err := requireUser(sess); err != nil {
		return DashboardView{}, err
	}
	sess.Dashboard().Mount()
	return s.render(sess), nil
}

// SelectTab switches the feed tab
func (s *DashboardService) SelectTab(sess *session.Session, tab types.FeedTab) (DashboardView, error) {
	if _, err := requireUser(sess); err != nil {
		return DashboardView{}, err
	}
	if err := sess.Dashboard().SelectTab(sess.View().Tier, tab); err != nil {
		return DashboardView{}, err
	}
	return s.render(sess), nil
}

// ReloadBrief retries a failed or empty brief load
func (s *DashboardService) ReloadBrief(sess *session.Session) (DashboardView, error) {
	if _, err := requireUser(sess); err != nil {
		return DashboardView{}, err
	}
	dash := sess.Dashboard()
	if !dash.Mount() {
		dash.ReloadBrief()
	}
	return s.render(sess), nil
}

func (s *DashboardService) render(sess *session.Session) DashboardView {
	state := sess.View()
	return DashboardView{
		View:     sess.Dashboard().View(state.Tier, state.Feeds),
		Profile:  state.Profile,
		Tier:     state.Tier,
		Channels: state.Tier.Channels(),
	}
}

// Navigate moves a signed-in session between the dashboard and the upgrade
// page. A user without saved preferences is sent to onboarding instead.
func (s *DashboardService) Navigate(sess *session.Session, page types.Page) (session.State, error) {
	if _, err := requireUser(sess); err != nil {
		return sess.View(), err
	}
	switch page {
	case types.PageDashboard, types.PageUpgrade:
	default:
		return sess.View(), apperrors.NewInvalidParameterError("page", "must be dashboard or upgrade")
	}
	return sess.Update(func(st *session.State) {
		if st.Preferences == nil {
			st.Page = types.PageOnboarding
			return
		}
		st.Page = page
	}), nil
}
