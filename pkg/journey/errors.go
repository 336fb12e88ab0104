// Package journey provides the versioned journey store service: optimistic
// concurrency over edits, atomic creation with an initial version snapshot,
// and explicit version snapshot creation.
package journey

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors, not infrastructure
// failures.
var (
	ErrJourneyNameRequired = errors.New("journey name is required")
	ErrClientIDRequired    = errors.New("client ID is required")
	ErrInvalidStatus       = errors.New("invalid journey status")
	ErrInvalidType         = errors.New("invalid touchpoint type")
	ErrEmptyPatch          = errors.New("patch contains no changes")
)

// ValidationError wraps a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError

	return errors.As(err, &ve) ||
		errors.Is(err, ErrJourneyNameRequired) ||
		errors.Is(err, ErrClientIDRequired) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrEmptyPatch)
}
