package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/viewhubs/internal/forge"
	"github.com/tonimelisma/viewhubs/internal/forgeauth"
	"github.com/tonimelisma/viewhubs/internal/tree"
)

// Error codes in JSON error bodies.
const (
	codeUnauthenticated = "unauthenticated"
	codeAuthExchange    = "auth_exchange_failed"
	codeMalformed       = "malformed_request"
	codeUpstream        = "upstream_error"
	codeInternal        = "internal_error"
	codeMissingCode     = "missing_code"
	codeProviderDenied  = "access_denied"
)

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// writeJSON writes v with status code. Responses may carry tokens, so they
// are never cached.
func writeJSON(w http.ResponseWriter, code int, v any) {
	noCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, code int, body string) {
	noCache(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// classify maps an error to the HTTP status and error code it surfaces as.
func classify(err error) (int, string) {
	var apiErr *forge.APIError

	switch {
	case errors.Is(err, forgeauth.ErrUnauthenticated):
		return http.StatusUnauthorized, codeUnauthenticated
	case errors.Is(err, forgeauth.ErrAuthExchange):
		return http.StatusUnauthorized, codeAuthExchange
	case errors.Is(err, tree.ErrMalformedID):
		return http.StatusInternalServerError, codeMalformed
	case errors.As(err, &apiErr):
		return http.StatusInternalServerError, codeUpstream
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// fail logs err and writes the matching status. Error details stay in the
// log; the body only names the error class.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	logger := LoggerFrom(r.Context(), h.Logger)

	attrs := []any{
		slog.Int("status", status),
		slog.String("code", code),
		slog.String("error", err.Error()),
	}

	var apiErr *forge.APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs,
			slog.Int("upstream_status", apiErr.StatusCode),
			slog.String("upstream_request_id", apiErr.RequestID),
		)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	writeJSON(w, status, errorResponse{Error: code})
}
