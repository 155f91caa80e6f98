package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrBackendUnreachable marks transport-level failures (connection refused,
// DNS, timeout). Callers show connectivity guidance for these instead of the
// application error message.
var ErrBackendUnreachable = errors.New("cannot connect to backend")

// APIError is an application-level failure: the backend answered with a
// non-success status and (usually) a structured error body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAuthError reports whether the error is a credential failure (401/403)
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// IsNoSubscription reports whether the error is the backend telling us the
// customer has no subscription to cancel. The orchestrator treats this as an
// idempotent no-op success.
func IsNoSubscription(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.Message, "No active subscription found") ||
		strings.Contains(apiErr.Message, "No subscription found")
}

// errorBody is the JSON error envelope the admin API returns on failure.
// Some endpoints use "error", others "message".
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// newAPIError builds an APIError from a response status and raw body,
// falling back to the HTTP status text when no parseable message exists.
func newAPIError(status int, body errorBody) *APIError {
	message := body.Error
	if message == "" {
		message = body.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return &APIError{Status: status, Message: message}
}
