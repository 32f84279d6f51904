package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the uniform failure shape produced by the relay client. Every
// failed call carries a numeric status code and a human-readable message:
// non-2xx responses keep the backend's code and message, transport failures
// are reported as a 500-class failure.
type Error struct {
	StatusCode int    // HTTP status code (500 for transport failures)
	Message    string // backend-provided message when present, else generic
	err        error  // underlying cause, if any
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// errorEnvelope matches the backend's error response body. The backend uses
// "error" for its failure messages; "message" is accepted as a fallback for
// proxied envelopes.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// IsUnauthorized reports whether err is a 401-class relay failure, i.e. an
// authenticated endpoint was reached with a missing or rejected credential.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// StatusCode extracts the status code from a relay error, or 0 when err is
// not a relay failure.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
