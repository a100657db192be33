package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tripbudget/internal/core"
	"tripbudget/internal/log"
)

type setCurrencyRequest struct {
	CurrencyCode string `json:"currency_code"`
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := s.budget.ListCurrencies(r.Context())
	if err != nil {
		writeServiceError(w, r, log.OpResolve, err)
		return
	}
	if currencies == nil {
		currencies = []core.Currency{}
	}
	writeJSON(w, http.StatusOK, currencies)
}

func (s *Server) handleSetUserCurrency(w http.ResponseWriter, r *http.Request) {
	var req setCurrencyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code := strings.TrimSpace(req.CurrencyCode)
	if code == "" {
		writeError(w, http.StatusBadRequest, "currency_code is required")
		return
	}

	c, err := s.budget.SetUserCurrency(r.Context(), userFrom(r.Context()), code)
	if err != nil {
		writeServiceError(w, r, log.OpResolve, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleInvalidateCache drops one user's cached currency, or every user's when the
// path has no user id.
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s.budget.InvalidateCurrencyCache(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}
