package api

import (
	"net/http"

	"github.com/cryptobrief/internal/dashboard"
	"github.com/cryptobrief/internal/notify"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/types"
)

// googleLoginRequest carries a token obtained by the browser's Google sign-in
type googleLoginRequest struct {
	AccessToken string `json:"accessToken" validate:"required,max=4096"`
}

// navigateRequest asks to move between signed-in pages
type navigateRequest struct {
	Page string `json:"page" validate:"required,oneof=dashboard upgrade"`
}

// SessionResponse is what the browser renders its shell from
type SessionResponse struct {
	session.State
	Banner       *notify.Notification        `json:"banner"`
	UpgradeModal dashboard.UpgradeModalView `json:"upgradeModal"`
	// ReturnTo is set on the error page; the browser sends the user there
	ReturnTo string `json:"returnTo,omitempty"`
}

func (s *Server) sessionResponse(sess *session.Session, state session.State) SessionResponse {
	resp := SessionResponse{
		State:        state,
		Banner:       sess.Banner().Current(),
		UpgradeModal: s.services.Upgrade.Modal(sess),
	}
	if state.Page == types.PageError {
		resp.ReturnTo = "/login"
	}
	return resp
}

// handleGoogleLogin handles GET /auth/google/login
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := s.services.Auth.BeginLogin(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// handleGoogleCallback handles GET /auth/google/callback. The browser is sent
// back to the app either way; the session page says how it went.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	query := r.URL.Query()

	// A denied consent arrives without a code and fails like any other login
	if _, err := s.services.Auth.CompleteLogin(r.Context(), sess, query.Get("state"), query.Get("code")); err != nil {
		sess.Logger().WithError(err).WithField("oauth_error", query.Get("error")).Warn("Google sign-in failed")
	}

	http.Redirect(w, r, s.config.PublicURL+"/", http.StatusFound)
}

// handleGoogleTokenLogin handles POST /api/auth/google
func (s *Server) handleGoogleTokenLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	sess := sessionFrom(r)
	if _, err := s.services.Auth.LoginWithAccessToken(r.Context(), sess, req.AccessToken); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, s.sessionResponse(sess, sess.View()))
}

// handleLogout handles POST /api/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.services.Auth.Logout(s.services.Sessions, sessionFrom(r))
	http.SetCookie(w, s.sessionCookie("", -1))

	respondJSON(w, http.StatusOK, SessionResponse{State: session.DefaultState()})
}

// handleGetSession handles GET /api/session
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	respondJSON(w, http.StatusOK, s.sessionResponse(sess, sess.View()))
}

// handleNavigate handles POST /api/session/page
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	sess := sessionFrom(r)
	state, err := s.services.Dashboard.Navigate(sess, types.Page(req.Page))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, s.sessionResponse(sess, state))
}

// handleDismissNotification handles POST /api/notifications/dismiss
func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Banner().Dismiss()
	respondJSON(w, http.StatusOK, s.sessionResponse(sess, sess.View()))
}
