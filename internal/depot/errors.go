// Package depot provides an HTTP client for a Depot artifact repository's
// REST API: storage metadata, streaming content transfer, and path
// relocation. The client handles authentication, retry with exponential
// backoff for transient failures, and error classification.
package depot

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, depot.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("depot: bad request")
	ErrUnauthorized = errors.New("depot: unauthorized")
	ErrForbidden    = errors.New("depot: forbidden")
	ErrNotFound     = errors.New("depot: not found")
	ErrConflict     = errors.New("depot: conflict")
	ErrThrottled    = errors.New("depot: throttled")
	ErrServerError  = errors.New("depot: server error")
)

// ErrInvalidResponse is returned when a 2xx response body is missing a field
// the API contract requires. Decoding failures are distinct errors, never
// zero-valued records.
var ErrInvalidResponse = errors.New("depot: invalid response")

// APIError wraps a sentinel error with the HTTP status code, the server's
// request ID when present, and the response body for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("depot: HTTP %d (request id %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("depot: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
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
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
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
