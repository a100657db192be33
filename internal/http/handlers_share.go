package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tripbudget/internal/log"
)

type createLinkRequest struct {
	// TTLHours of zero or less issues a link that never expires.
	TTLHours int `json:"ttl_hours"`
}

func (s *Server) handleCreateSharedLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := s.shares.Create(r.Context(), chi.URLParam(r, "tripID"), userFrom(r.Context()),
		time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		writeServiceError(w, r, log.OpShare, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (s *Server) handleRevokeSharedLink(w http.ResponseWriter, r *http.Request) {
	if err := s.shares.Revoke(r.Context(), chi.URLParam(r, "token"), userFrom(r.Context())); err != nil {
		writeServiceError(w, r, log.OpShare, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSharedBudget(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.shares.SharedBudget(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, log.OpShare, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
