package civibook

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated marks requests attempted without a session token.
var ErrNotAuthenticated = errors.New("not authenticated")

// ValidationError is the backend's 422 response: per-field messages
// keyed by snake_case field names. The caller translates keys through
// fielderr before showing them.
type ValidationError struct {
	Errors map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Errors))
}

// ConflictError is the backend's 409 response, a business-rule
// rejection such as an overlapping booking. The submission stays
// retryable.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "booking conflict"
	}
	return e.Message
}

// StatusError covers any status the client has no specific handling
// for. Never fatal; surfaced as a generic message.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}
