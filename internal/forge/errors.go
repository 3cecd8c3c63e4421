// Package forge provides an HTTP client for the Autodesk Platform Services
// data management, model derivative and user profile APIs, with automatic
// retry, rate limiting, pagination and error classification.
package forge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, forge.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("forge: bad request")
	ErrUnauthorized = errors.New("forge: unauthorized")
	ErrForbidden    = errors.New("forge: forbidden")
	ErrNotFound     = errors.New("forge: not found")
	ErrConflict     = errors.New("forge: conflict")
	ErrGone         = errors.New("forge: resource gone")
	ErrThrottled    = errors.New("forge: throttled")
	ErrServerError  = errors.New("forge: server error")
	ErrUnexpected   = errors.New("forge: unexpected status")
)

// maxErrorMessageLen caps how much of a raw error body ends up in an APIError
// when no structured message can be extracted.
const maxErrorMessageLen = 512

// errorMessagePaths are the gjson paths probed, in order, for a human-readable
// message. Each API family reports errors in its own shape: JSON:API errors
// arrays (data management), developerMessage (authentication, user profile)
// and diagnostic (model derivative).
var errorMessagePaths = []string{
	"errors.0.detail",
	"errors.0.title",
	"developerMessage",
	"diagnostic",
	"detail",
	"message",
	"reason",
}

// APIError wraps a sentinel error with HTTP status code, request ID,
// and the upstream error message for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("forge: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("forge: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// newAPIError builds an APIError from a failed response body.
func newAPIError(status int, requestID string, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		RequestID:  requestID,
		Message:    extractMessage(body),
		Err:        classifyStatus(status),
	}
}

// extractMessage pulls the most specific message out of an upstream error body.
// Falls back to the (truncated) raw body for non-JSON responses.
func extractMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range errorMessagePaths {
			if msg := gjson.GetBytes(body, path); msg.Exists() && msg.String() != "" {
				return msg.String()
			}
		}
	}

	raw := strings.TrimSpace(string(body))
	if len(raw) > maxErrorMessageLen {
		raw = raw[:maxErrorMessageLen] + "..."
	}

	return raw
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusGone:
		return ErrGone
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return ErrUnexpected
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
