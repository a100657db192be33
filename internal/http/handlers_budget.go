package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tripbudget/internal/core"
	"tripbudget/internal/log"
)

func (s *Server) handleTripBudget(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	snapshot, err := s.budget.ComputeBudget(r.Context(), tripID, userFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, log.OpCompute, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.budget.ListTripBudgetSummaries(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, log.OpSummaries, err)
		return
	}
	if summaries == nil {
		summaries = []core.TripBudgetSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}
