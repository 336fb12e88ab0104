// Package conflict classifies divergence between locally stored journey
// state and either a caller-submitted version or the remote platform's copy,
// and models the explicit resolution policies a caller can choose.
package conflict

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind is the closed set of conflict classifications.
type Kind string

const (
	// KindVersionMismatch is a human-edit race: the submitted version no
	// longer matches the stored version.
	KindVersionMismatch Kind = "version_mismatch"

	// KindExternalModification means the remote copy differs from what the
	// ledger last recorded as published, with no local change explaining it.
	KindExternalModification Kind = "external_modification"

	// KindStepCountMismatch means the remote journey has a different number
	// of steps than the local one, a structural drift.
	KindStepCountMismatch Kind = "step_count_mismatch"
)

// Conflict carries enough context to drive a resolution decision: the kind,
// the responsible ids, and both sides of the divergence.
type Conflict struct {
	Kind         Kind   `json:"kind"`
	JourneyID    string `json:"journey_id"`
	TouchpointID string `json:"touchpoint_id,omitempty"`
	Local        string `json:"local"`
	Remote       string `json:"remote"`
	Detail       string `json:"detail,omitempty"`
}

func (c Conflict) String() string {
	target := c.JourneyID
	if c.TouchpointID != "" {
		target = c.TouchpointID
	}

	return fmt.Sprintf("%s on %s (local %s, remote %s)", c.Kind, target, c.Local, c.Remote)
}

// Structural reports whether the conflict rules out a field-level merge.
func (c Conflict) Structural() bool {
	return c.Kind == KindStepCountMismatch
}

// CheckVersion classifies a caller-submitted version against the stored one.
// Returns nil when they match.
func CheckVersion(journeyID string, submitted, current int64) *Conflict {
	if submitted == current {
		return nil
	}

	return &Conflict{
		Kind:      KindVersionMismatch,
		JourneyID: journeyID,
		Local:     strconv.FormatInt(current, 10),
		Remote:    strconv.FormatInt(submitted, 10),
		Detail:    "submitted version does not match stored version",
	}
}

// Resolution is the caller-supplied policy for a detected conflict. No
// policy is ever chosen implicitly.
type Resolution string

const (
	// ResolutionSkip leaves the remote copy untouched.
	ResolutionSkip Resolution = "skip"

	// ResolutionOverwrite force-publishes local state over the remote copy.
	ResolutionOverwrite Resolution = "overwrite"

	// ResolutionMerge applies a field-level union; rejected for structural
	// conflicts.
	ResolutionMerge Resolution = "merge"

	// ResolutionManual defers the decision to a human.
	ResolutionManual Resolution = "manual"
)

var errInvalidResolution = errors.New("invalid resolution policy")

// ParseResolution validates a caller-supplied policy name.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(s) {
	case ResolutionSkip, ResolutionOverwrite, ResolutionMerge, ResolutionManual:
		return Resolution(s), nil
	}

	return "", fmt.Errorf("%w: %q (want skip, overwrite, merge or manual)", errInvalidResolution, s)
}

// ErrMergeNotAllowed is returned when merge is requested for a structural
// conflict set.
var ErrMergeNotAllowed = errors.New("merge is not allowed for structural conflicts")

// ValidateResolution rejects policies the conflict set cannot honor: merge
// requires that no structural conflict is present.
func ValidateResolution(resolution Resolution, conflicts []Conflict) error {
	if resolution != ResolutionMerge {
		return nil
	}

	for _, c := range conflicts {
		if c.Structural() {
			return fmt.Errorf("%w: %s", ErrMergeNotAllowed, c.Kind)
		}
	}

	return nil
}
