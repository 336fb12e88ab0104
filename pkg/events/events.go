// Package events defines event types and structures for journey lifecycle
// and sync run notifications.
package events

import (
	"time"

	"github.com/marketloop/journeysync/pkg/models"
)

type EventType string

// Kafka topics.
const Topic = "journeysync.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Journey lifecycle events.
	JourneyCreatedEvent EventType = "journey.created"
	JourneyUpdatedEvent EventType = "journey.updated"
	JourneyDeletedEvent EventType = "journey.deleted"

	// Sync run lifecycle events.
	SyncRunStartedEvent  EventType = "sync.run.started"
	SyncRunFinishedEvent EventType = "sync.run.finished"
	SyncRunFailedEvent   EventType = "sync.run.failed"

	// Publish and conflict events.
	TouchpointPublishedEvent EventType = "touchpoint.published"
	ConflictDetectedEvent    EventType = "conflict.detected"
	ConflictResolvedEvent    EventType = "conflict.resolved"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type JourneyCreated struct {
	BaseEvent

	JourneyID string `json:"journey_id"`
	ClientID  string `json:"client_id"`
}

func (e JourneyCreated) GetType() EventType {
	return JourneyCreatedEvent
}

type JourneyUpdated struct {
	BaseEvent

	JourneyID string `json:"journey_id"`
	Version   int64  `json:"version"`
}

func (e JourneyUpdated) GetType() EventType {
	return JourneyUpdatedEvent
}

type JourneyDeleted struct {
	BaseEvent

	JourneyID string `json:"journey_id"`
}

func (e JourneyDeleted) GetType() EventType {
	return JourneyDeletedEvent
}

type SyncRunStarted struct {
	BaseEvent

	RunID  string           `json:"run_id"`
	Scope  models.SyncScope `json:"scope"`
	DryRun bool             `json:"dry_run"`
}

func (e SyncRunStarted) GetType() EventType {
	return SyncRunStartedEvent
}

type SyncRunFinished struct {
	BaseEvent

	RunID    string             `json:"run_id"`
	Summary  models.SyncSummary `json:"summary"`
	Duration time.Duration      `json:"duration"`
}

func (e SyncRunFinished) GetType() EventType {
	return SyncRunFinishedEvent
}

type SyncRunFailed struct {
	BaseEvent

	RunID    string        `json:"run_id"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e SyncRunFailed) GetType() EventType {
	return SyncRunFailedEvent
}

type TouchpointPublished struct {
	BaseEvent

	JourneyID        string `json:"journey_id"`
	TouchpointID     string `json:"touchpoint_id"`
	RemoteTemplateID string `json:"remote_template_id"`
	Action           string `json:"action"`
}

func (e TouchpointPublished) GetType() EventType {
	return TouchpointPublishedEvent
}

type ConflictDetected struct {
	BaseEvent

	ConflictID   string `json:"conflict_id"`
	JourneyID    string `json:"journey_id"`
	TouchpointID string `json:"touchpoint_id,omitempty"`
	Kind         string `json:"kind"`
}

func (e ConflictDetected) GetType() EventType {
	return ConflictDetectedEvent
}

type ConflictResolved struct {
	BaseEvent

	ConflictID string `json:"conflict_id"`
	Resolution string `json:"resolution"`
}

func (e ConflictResolved) GetType() EventType {
	return ConflictResolvedEvent
}
