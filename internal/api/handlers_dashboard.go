package api

import (
	"net/http"

	"github.com/cryptobrief/internal/types"
)

// tabRequest selects a feed tab
type tabRequest struct {
	Tab string `json:"tab" validate:"required,oneof=watchlist sector narrative trending"`
}

// handleGetDashboard handles GET /api/dashboard
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Dashboard.View(sessionFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleSelectTab handles POST /api/dashboard/tab
func (s *Server) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	tab, _ := types.ParseFeedTab(req.Tab)
	view, err := s.services.Dashboard.SelectTab(sessionFrom(r), tab)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleReloadBrief handles POST /api/dashboard/reload
func (s *Server) handleReloadBrief(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Dashboard.ReloadBrief(sessionFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}
