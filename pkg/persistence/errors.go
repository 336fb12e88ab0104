// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"

	"github.com/marketloop/journeysync/pkg/models"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrJourneyNotFound indicates a journey was not found by the given identifier.
	ErrJourneyNotFound = errors.New("journey not found")

	// ErrTouchpointNotFound indicates a touchpoint was not found by the given identifier.
	ErrTouchpointNotFound = errors.New("touchpoint not found")

	// ErrSnapshotNotFound indicates no version snapshot exists for the given journey and version.
	ErrSnapshotNotFound = errors.New("version snapshot not found")

	// ErrLedgerEntryNotFound indicates no publish state entry exists for the given touchpoint.
	ErrLedgerEntryNotFound = errors.New("publish state entry not found")

	// ErrSyncRunNotFound indicates a sync run was not found by the given identifier.
	ErrSyncRunNotFound = errors.New("sync run not found")

	// ErrConflictNotFound indicates a conflict record was not found by the given identifier.
	ErrConflictNotFound = errors.New("conflict record not found")

	// ErrJourneyAlreadyExists indicates a journey with the same identifier already exists.
	ErrJourneyAlreadyExists = errors.New("journey already exists")

	// ErrVersionConflict indicates an update was submitted against a stale journey version.
	ErrVersionConflict = errors.New("journey version conflict")

	// ErrInvalidReorder indicates a reorder request did not cover the journey's touchpoints exactly.
	ErrInvalidReorder = errors.New("reorder ids do not match journey touchpoints")
)

// VersionConflictError is returned when an optimistic-lock check fails. It
// carries the full current entity so the caller can re-render and merge, plus
// both version numbers.
type VersionConflictError struct {
	JourneyID        string
	SubmittedVersion int64
	CurrentVersion   int64
	Current          *models.Journey
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on journey %s: submitted %d, current %d",
		e.JourneyID, e.SubmittedVersion, e.CurrentVersion)
}

func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// JourneyError wraps journey-related errors with operation context.
type JourneyError struct {
	Op        string // Operation being performed (e.g., "GetByID", "Update", "Delete")
	JourneyID string
	Err       error
}

func (e *JourneyError) Error() string {
	return fmt.Sprintf("%s operation failed for journey %s: %v", e.Op, e.JourneyID, e.Err)
}

func (e *JourneyError) Unwrap() error {
	return e.Err
}

func (e *JourneyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewJourneyError creates a new journey error with context.
func NewJourneyError(op, journeyID string, err error) *JourneyError {
	return &JourneyError{Op: op, JourneyID: journeyID, Err: err}
}

// TouchpointError wraps touchpoint-related errors with operation context.
type TouchpointError struct {
	Op           string
	JourneyID    string
	TouchpointID string
	Err          error
}

func (e *TouchpointError) Error() string {
	if e.JourneyID != "" {
		return fmt.Sprintf("%s operation failed for touchpoint %s in journey %s: %v",
			e.Op, e.TouchpointID, e.JourneyID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for touchpoint %s: %v", e.Op, e.TouchpointID, e.Err)
}

func (e *TouchpointError) Unwrap() error {
	return e.Err
}

func (e *TouchpointError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsJourneyNotFound checks if an error indicates a journey was not found.
func IsJourneyNotFound(err error) bool {
	return errors.Is(err, ErrJourneyNotFound)
}

// IsTouchpointNotFound checks if an error indicates a touchpoint was not found.
func IsTouchpointNotFound(err error) bool {
	return errors.Is(err, ErrTouchpointNotFound)
}

// IsLedgerEntryNotFound checks if an error indicates a ledger entry was not found.
func IsLedgerEntryNotFound(err error) bool {
	return errors.Is(err, ErrLedgerEntryNotFound)
}

// IsVersionConflict checks if an error is an optimistic-lock failure.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// AsVersionConflict extracts the typed conflict payload when err is an
// optimistic-lock failure.
func AsVersionConflict(err error) (*VersionConflictError, bool) {
	var vc *VersionConflictError
	if errors.As(err, &vc) {
		return vc, true
	}

	return nil, false
}
