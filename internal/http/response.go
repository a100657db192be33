package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"tripbudget/internal/core"
	"tripbudget/internal/log"
	"tripbudget/internal/services"
	"tripbudget/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps service errors to HTTP status codes. Degraded data never reaches
// here: only the fatal conditions of a computation do.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrTripNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCurrencyResolution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotTripOwner):
		return http.StatusForbidden
	case errors.Is(err, core.ErrCurrencyNotFound):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes the mapped status. Internal errors are not
// exposed to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldOperation, op, log.FieldError, err)
		writeError(w, status, http.StatusText(status))
		return
	}
	logger.InfoContext(r.Context(), "Request rejected", log.FieldOperation, op, log.FieldError, err, log.FieldStatusCode, status)
	writeError(w, status, err.Error())
}

type userKey struct{}

// requireUser rejects requests without a caller identity.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+UserHeader+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, userID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// decodeJSON decodes an optional JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
