package publisher

import (
	"errors"
	"fmt"

	"github.com/marketloop/journeysync/pkg/models"
)

var (
	// ErrNotPublishable is returned when a touchpoint's type does not map to
	// a remote template.
	ErrNotPublishable = errors.New("touchpoint type is not publishable")

	// ErrInvalidPayload is returned when a publishable touchpoint is missing
	// a field the platform requires.
	ErrInvalidPayload = errors.New("invalid template payload")
)

// NotPublishableError identifies the touchpoint and type that failed the
// publishability gate.
type NotPublishableError struct {
	TouchpointID string
	Type         models.TouchpointType
}

func (e *NotPublishableError) Error() string {
	return fmt.Sprintf("touchpoint %s has type %q which is not publishable", e.TouchpointID, e.Type)
}

func (e *NotPublishableError) Is(target error) bool {
	return target == ErrNotPublishable
}

// PayloadError names the missing or invalid field.
type PayloadError struct {
	TouchpointID string
	Field        string
	Message      string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("touchpoint %s: field %q: %s", e.TouchpointID, e.Field, e.Message)
}

func (e *PayloadError) Is(target error) bool {
	return target == ErrInvalidPayload
}

// IsNotPublishable reports whether err is a publishability gate failure.
func IsNotPublishable(err error) bool {
	return errors.Is(err, ErrNotPublishable)
}

// IsInvalidPayload reports whether err is a payload validation failure.
func IsInvalidPayload(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}
