// Package models defines the core domain models for journey synchronization.
package models

import "time"

// JourneyStatus represents the lifecycle state of a journey.
type JourneyStatus string

const (
	JourneyStatusDraft        JourneyStatus = "draft"         // Editable, not reviewed yet
	JourneyStatusClientReview JourneyStatus = "client_review" // Awaiting client feedback
	JourneyStatusApproved     JourneyStatus = "approved"      // Approved, eligible for sync
	JourneyStatusPublished    JourneyStatus = "published"     // Materialized in the remote platform
	JourneyStatusRejected     JourneyStatus = "rejected"      // Sent back by the client
	JourneyStatusArchived     JourneyStatus = "archived"      // Retired, excluded from sync
)

// ValidJourneyStatus reports whether s is one of the known journey statuses.
func ValidJourneyStatus(s JourneyStatus) bool {
	switch s {
	case JourneyStatusDraft, JourneyStatusClientReview, JourneyStatusApproved,
		JourneyStatusPublished, JourneyStatusRejected, JourneyStatusArchived:
		return true
	}

	return false
}

// Journey represents a named, ordered sequence of touchpoints belonging to a
// client. Every accepted mutation increments Version by exactly one; the
// version counter is the sole optimistic-concurrency primitive for edits.
type Journey struct {
	ID        string         `json:"id"`
	ClientID  string         `json:"client_id"  validate:"required"`
	Name      string         `json:"name"       validate:"required,min=3"`
	Status    JourneyStatus  `json:"status"     validate:"required"`
	Version   int64          `json:"version"    validate:"min=1"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
}

// RemoteWorkflowID returns the remote platform workflow identifier attached to
// the journey, if any. The link is kept in metadata because the remote copy is
// owned by the external platform, not by this store.
func (j *Journey) RemoteWorkflowID() string {
	if j.Metadata == nil {
		return ""
	}

	if id, ok := j.Metadata["remote_workflow_id"].(string); ok {
		return id
	}

	return ""
}

// Syncable reports whether the journey is in a state the sync orchestrator
// should pick up.
func (j *Journey) Syncable() bool {
	return j.Status == JourneyStatusApproved || j.Status == JourneyStatusPublished
}

// JourneyPatch describes a partial update to a journey. Nil fields are left
// untouched.
type JourneyPatch struct {
	Name     *string        `json:"name,omitempty"`
	Status   *JourneyStatus `json:"status,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Apply copies the non-nil patch fields onto the journey.
func (p JourneyPatch) Apply(j *Journey) {
	if p.Name != nil {
		j.Name = *p.Name
	}

	if p.Status != nil {
		j.Status = *p.Status
	}

	if p.Metadata != nil {
		if j.Metadata == nil {
			j.Metadata = make(map[string]any, len(p.Metadata))
		}

		for k, v := range p.Metadata {
			j.Metadata[k] = v
		}
	}
}
