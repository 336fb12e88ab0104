package models

import "time"

// JourneySnapshotPayload is the serialized journey state captured by a version
// snapshot: the journey fields as of that version plus its touchpoints.
type JourneySnapshotPayload struct {
	Journey     *Journey      `json:"journey,omitempty"`
	Touchpoints []*Touchpoint `json:"touchpoints,omitempty"`
}

// JourneyVersionSnapshot is an immutable historical record of a journey at a
// given version. Snapshots are append-only; the core never mutates or deletes
// them.
type JourneyVersionSnapshot struct {
	ID        string                 `json:"id"`
	JourneyID string                 `json:"journey_id" validate:"required"`
	Version   int64                  `json:"version"    validate:"min=1"`
	Snapshot  JourneySnapshotPayload `json:"snapshot"`
	ChangeLog string                 `json:"change_log"`
	CreatedBy string                 `json:"created_by"`
	CreatedAt time.Time              `json:"created_at"`
}
