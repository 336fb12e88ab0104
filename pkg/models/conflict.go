package models

import "time"

// ConflictStatus tracks whether a recorded conflict still needs a decision.
type ConflictStatus string

const (
	ConflictStatusOpen     ConflictStatus = "open"
	ConflictStatusResolved ConflictStatus = "resolved"
)

// ConflictRecord is the durable form of a detected divergence between local
// and remote state. Records stay open until a caller resolves them with an
// explicit policy; the orchestrator never resolves one implicitly.
type ConflictRecord struct {
	ID           string         `json:"id"`
	JourneyID    string         `json:"journey_id"`
	TouchpointID string         `json:"touchpoint_id,omitempty"`
	Kind         string         `json:"kind"`
	LocalValue   string         `json:"local_value"`
	RemoteValue  string         `json:"remote_value"`
	Detail       string         `json:"detail,omitempty"`
	Status       ConflictStatus `json:"status"`
	Resolution   string         `json:"resolution,omitempty"`
	DetectedAt   time.Time      `json:"detected_at"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
}
