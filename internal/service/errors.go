// Package service holds the booking domain logic that sits between the
// HTTP handlers and the repositories.
package service

import (
	"errors"
	"strings"
)

// ErrDatabaseUnavailable wraps failures to reach MySQL before any
// booking work starts.  Handlers answer 503.
var ErrDatabaseUnavailable = errors.New("database unavailable")

// ErrInvalidTransition is returned when a status change is not allowed
// from the booking's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidationError lists the request fields that were missing or
// malformed.  No writes happen when it is returned.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}
