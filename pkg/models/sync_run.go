package models

import "time"

// SyncRunStatus is the state machine for a sync run as a whole.
type SyncRunStatus string

const (
	SyncRunStatusPending   SyncRunStatus = "pending"
	SyncRunStatusRunning   SyncRunStatus = "running"
	SyncRunStatusCompleted SyncRunStatus = "completed"
	SyncRunStatusFailed    SyncRunStatus = "failed"
)

// SyncOutcome is the terminal state of one journey or touchpoint within a run.
type SyncOutcome string

const (
	SyncOutcomeSynced     SyncOutcome = "synced"
	SyncOutcomeSkipped    SyncOutcome = "skipped"
	SyncOutcomeConflicted SyncOutcome = "conflicted"
	SyncOutcomeFailed     SyncOutcome = "failed"
)

// SyncScope selects which journeys a run targets: everything due, one
// client's journeys, or a single journey.
type SyncScope struct {
	ClientID  string `json:"client_id,omitempty"`
	JourneyID string `json:"journey_id,omitempty"`
}

// SyncItemResult records the outcome for a single touchpoint (or, for
// journey-level conflicts, the journey itself) within a run.
type SyncItemResult struct {
	JourneyID        string      `json:"journey_id"`
	TouchpointID     string      `json:"touchpoint_id,omitempty"`
	Outcome          SyncOutcome `json:"outcome"`
	Action           string      `json:"action,omitempty"` // created, updated, none
	RemoteTemplateID string      `json:"remote_template_id,omitempty"`
	Attempts         int         `json:"attempts,omitempty"`
	Error            string      `json:"error,omitempty"`
}

// SyncSummary aggregates per-item outcomes for a run.
type SyncSummary struct {
	Journeys   int `json:"journeys"`
	Synced     int `json:"synced"`
	Skipped    int `json:"skipped"`
	Conflicted int `json:"conflicted"`
	Failed     int `json:"failed"`
}

// SyncRun is the durable record of one orchestrator run.
type SyncRun struct {
	ID         string           `json:"id"`
	Scope      SyncScope        `json:"scope"`
	DryRun     bool             `json:"dry_run"`
	Force      bool             `json:"force"`
	Status     SyncRunStatus    `json:"status"`
	Summary    SyncSummary      `json:"summary"`
	Items      []SyncItemResult `json:"items,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// Count folds one item result into the summary.
func (s *SyncSummary) Count(outcome SyncOutcome) {
	switch outcome {
	case SyncOutcomeSynced:
		s.Synced++
	case SyncOutcomeSkipped:
		s.Skipped++
	case SyncOutcomeConflicted:
		s.Conflicted++
	case SyncOutcomeFailed:
		s.Failed++
	}
}
