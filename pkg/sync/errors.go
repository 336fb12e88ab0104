package sync

import "errors"

var (
	// ErrConflictAlreadyResolved is returned when resolving a conflict record
	// that is no longer open.
	ErrConflictAlreadyResolved = errors.New("conflict is already resolved")

	// ErrManualNotAResolution is returned when a caller tries to resolve a
	// stored conflict with the manual policy, which only defers.
	ErrManualNotAResolution = errors.New("manual defers a conflict, it does not resolve one")

	// ErrRunCancelled marks a run that stopped between journeys because its
	// context was cancelled.
	ErrRunCancelled = errors.New("sync run cancelled")
)
