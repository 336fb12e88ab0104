// Package web provides HTTP request and response types for the journey sync API.
package web

import "github.com/marketloop/journeysync/pkg/models"

// CreateJourneyRequest represents the request body for creating a new journey.
type CreateJourneyRequest struct {
	ClientID  string         `json:"client_id"  validate:"required"`
	Name      string         `json:"name"       validate:"required,min=3"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedBy string         `json:"created_by,omitempty"`
}

// UpdateJourneyRequest represents the request body for a partial journey
// update. SubmittedVersion is optional: callers that do not track versions
// omit it and the update proceeds unconditionally.
type UpdateJourneyRequest struct {
	SubmittedVersion *int64                `json:"submitted_version,omitempty"`
	Name             *string               `json:"name,omitempty"    validate:"omitempty,min=3"`
	Status           *models.JourneyStatus `json:"status,omitempty"`
	Metadata         map[string]any        `json:"metadata,omitempty"`
}

// CreateSnapshotRequest represents the request body for capturing a new
// journey version snapshot.
type CreateSnapshotRequest struct {
	ChangeLog string `json:"change_log" validate:"required"`
	CreatedBy string `json:"created_by,omitempty"`
}

// CreateTouchpointRequest represents the request body for appending a
// touchpoint to a journey.
type CreateTouchpointRequest struct {
	Type    models.TouchpointType `json:"type" validate:"required"`
	Name    string                `json:"name"`
	Content map[string]any        `json:"content,omitempty"`
	Config  map[string]any        `json:"config,omitempty"`
}

// UpdateTouchpointRequest represents the request body for a partial
// touchpoint update. The remote template id is not editable through the API.
type UpdateTouchpointRequest struct {
	Name    *string                  `json:"name,omitempty"`
	Status  *models.TouchpointStatus `json:"status,omitempty"`
	Content map[string]any           `json:"content,omitempty"`
	Config  map[string]any           `json:"config,omitempty"`
}

// ReorderTouchpointsRequest represents the request body for reassigning a
// journey's touchpoint order. IDs must be a permutation of the journey's
// touchpoint ids.
type ReorderTouchpointsRequest struct {
	OrderedIDs []string `json:"ordered_ids" validate:"required,min=1"`
}

// TriggerSyncRequest represents the request body for starting a sync run.
type TriggerSyncRequest struct {
	ClientID   string `json:"client_id,omitempty"`
	JourneyID  string `json:"journey_id,omitempty"`
	DryRun     bool   `json:"dry_run"`
	Force      bool   `json:"force"`
	Resolution string `json:"resolution,omitempty"`
}

// ResolveConflictRequest represents the request body for resolving one open
// conflict record.
type ResolveConflictRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=skip overwrite merge"`
}
