package api

import (
	"net/http"
)

// telegramSaveRequest carries the Telegram modal fields. The rate is clamped
// server-side rather than rejected.
type telegramSaveRequest struct {
	TelegramID string `json:"telegramId" validate:"max=256"`
	UpdateRate int    `json:"updateRate"`
}

// redeemRequest carries an upgrade code
type redeemRequest struct {
	Code string `json:"code" validate:"max=128"`
}

// handleGetChannels handles GET /api/settings/channels
func (s *Server) handleGetChannels(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Settings.Channels(sessionFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleOpenTelegram handles POST /api/settings/telegram/open
func (s *Server) handleOpenTelegram(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Settings.OpenTelegram(sessionFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleSaveTelegram handles POST /api/settings/telegram/save
func (s *Server) handleSaveTelegram(w http.ResponseWriter, r *http.Request) {
	var req telegramSaveRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.services.Settings.SaveTelegram(r.Context(), sessionFrom(r), req.TelegramID, req.UpdateRate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleCloseTelegram handles POST /api/settings/telegram/close
func (s *Server) handleCloseTelegram(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.services.Settings.CloseTelegram(sessionFrom(r)))
}

// handleGetPlans handles GET /api/upgrade/plans
func (s *Server) handleGetPlans(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.services.Upgrade.Plans(sessionFrom(r)))
}

// handleRedeem handles POST /api/upgrade/redeem
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	sess := sessionFrom(r)
	state, err := s.services.Upgrade.Redeem(r.Context(), sess, req.Code)
	s.respondState(w, r, sess, state, err)
}

// handleCloseUpgradeModal handles POST /api/upgrade/modal/close
func (s *Server) handleCloseUpgradeModal(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Upgrade.CloseModal(sessionFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}
