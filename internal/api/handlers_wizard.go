package api

import (
	"net/http"

	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/service"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/wizard"
)

// setItemRequest names one entry in one of the draft sets
type setItemRequest struct {
	Set  string `json:"set" validate:"required,oneof=sectors narratives watchlist"`
	Item string `json:"item" validate:"required,max=100"`
}

// inputRequest replaces a set's free-text buffer
type inputRequest struct {
	Set  string `json:"set" validate:"required,oneof=sectors narratives watchlist"`
	Text string `json:"text" validate:"max=100"`
}

// addRequest adds a custom entry. Without text the set's buffer is submitted.
type addRequest struct {
	Set  string  `json:"set" validate:"required,oneof=sectors narratives watchlist"`
	Text *string `json:"text,omitempty" validate:"omitempty,max=100"`
}

func setKind(name string) (wizard.SetKind, error) {
	kind, err := wizard.ParseSetKind(name)
	if err != nil {
		return "", apperrors.NewInvalidParameterError("set", err.Error())
	}
	return kind, nil
}

// respondWizard sends the wizard view, or the error when the step failed
func respondWizard(w http.ResponseWriter, r *http.Request, view service.WizardView, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// respondState sends the session state after a persisting wizard step
func (s *Server) respondState(w http.ResponseWriter, r *http.Request, sess *session.Session, state session.State, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.sessionResponse(sess, state))
}

// handleGetWizard handles GET /api/wizard
func (s *Server) handleGetWizard(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Onboarding.View(sessionFrom(r))
	respondWizard(w, r, view, err)
}

// handleWizardToggle handles POST /api/wizard/toggle
func (s *Server) handleWizardToggle(w http.ResponseWriter, r *http.Request) {
	var req setItemRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	kind, err := setKind(req.Set)
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.services.Onboarding.Toggle(sessionFrom(r), kind, req.Item)
	respondWizard(w, r, view, err)
}

// handleWizardInput handles POST /api/wizard/input
func (s *Server) handleWizardInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	kind, err := setKind(req.Set)
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.services.Onboarding.SetInput(sessionFrom(r), kind, req.Text)
	respondWizard(w, r, view, err)
}

// handleWizardAdd handles POST /api/wizard/add
func (s *Server) handleWizardAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	kind, err := setKind(req.Set)
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.services.Onboarding.AddCustom(sessionFrom(r), kind, req.Text)
	respondWizard(w, r, view, err)
}

// handleWizardRemove handles POST /api/wizard/remove
func (s *Server) handleWizardRemove(w http.ResponseWriter, r *http.Request) {
	var req setItemRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	kind, err := setKind(req.Set)
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.services.Onboarding.Remove(sessionFrom(r), kind, req.Item)
	respondWizard(w, r, view, err)
}

// handleWizardNext handles POST /api/wizard/next
func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Onboarding.Next(sessionFrom(r))
	respondWizard(w, r, view, err)
}

// handleWizardBack handles POST /api/wizard/back
func (s *Server) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Onboarding.Back(sessionFrom(r))
	respondWizard(w, r, view, err)
}

// handleWizardFinish handles POST /api/wizard/finish
func (s *Server) handleWizardFinish(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	state, err := s.services.Onboarding.Finish(r.Context(), sess)
	s.respondState(w, r, sess, state, err)
}

// handleWizardReset handles POST /api/wizard/reset
func (s *Server) handleWizardReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	state, err := s.services.Onboarding.ResetPreferences(r.Context(), sess)
	s.respondState(w, r, sess, state, err)
}
