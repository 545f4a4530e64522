package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cryptobrief/internal/logging"
)

// briefFeedTitle titles the Atom feed of briefs
const briefFeedTitle = "Crypto Brief"

// BriefLinkResponse carries the latest brief URL
type BriefLinkResponse struct {
	PDFURL string `json:"pdfUrl"`
}

// handleBriefLink handles GET /api/pdf-brief
func (s *Server) handleBriefLink(w http.ResponseWriter, r *http.Request) {
	file, err := s.services.Briefs.LatestPDF(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, BriefLinkResponse{PDFURL: file.FullURL})
}

// handleBriefDownload handles GET /api/pdf-brief/download
func (s *Server) handleBriefDownload(w http.ResponseWriter, r *http.Request) {
	file, body, size, err := s.services.Briefs.OpenLatest(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Name()))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("Brief download interrupted")
	}
}

// handleBriefFeed handles GET /api/pdf-brief/feed
func (s *Server) handleBriefFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := s.services.Briefs.Feed(r.Context(), briefFeedTitle, s.config.PublicURL)
	if err != nil {
		respondError(w, r, err)
		return
	}

	atom, err := feed.ToAtom()
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, atom)
}
