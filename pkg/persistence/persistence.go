// Package persistence provides the data storage abstraction layer for
// journeys, touchpoints, version snapshots, the publish state ledger, sync
// runs and conflict records.
package persistence

import (
	"context"

	"github.com/marketloop/journeysync/pkg/models"
)

// ListJourneysOptions filters and paginates journey listings.
type ListJourneysOptions struct {
	Limit    int
	Offset   int
	ClientID string
	Status   *models.JourneyStatus
}

// JourneyListResult carries one page of journeys plus pagination metadata.
type JourneyListResult struct {
	Journeys    []*models.Journey
	TotalCount  int64
	HasNextPage bool
}

// JourneyRepository persists journeys. Update is the optimistic-concurrency
// primitive: the stored version check, the patch application and the version
// increment happen as one atomic operation against the backing store.
type JourneyRepository interface {
	List(ctx context.Context, opts ListJourneysOptions) (*JourneyListResult, error)
	GetByID(ctx context.Context, id string) (*models.Journey, error)

	// Create stores a new journey together with its initial version snapshot.
	// Either both exist afterwards or neither does.
	Create(ctx context.Context, journey *models.Journey, snapshot *models.JourneyVersionSnapshot) error

	// Update applies fn to the stored journey and increments its version by
	// exactly one, atomically. When expectedVersion is non-nil and does not
	// match the stored version, no mutation occurs and a *VersionConflictError
	// carrying the current entity is returned.
	Update(ctx context.Context, id string, expectedVersion *int64, fn func(*models.Journey) error) (*models.Journey, error)

	// AdvanceVersionWithSnapshot writes snapshot (at stored version + 1) and
	// advances the journey's version to match, atomically.
	AdvanceVersionWithSnapshot(ctx context.Context, journeyID string, snapshot *models.JourneyVersionSnapshot) (*models.Journey, error)

	// Delete removes the journey and, by ownership, its touchpoints. Ledger
	// entries are left behind; they reference touchpoints weakly by id.
	Delete(ctx context.Context, id string) error
}

// TouchpointRepository persists touchpoints.
type TouchpointRepository interface {
	ListByJourney(ctx context.Context, journeyID string) ([]*models.Touchpoint, error)
	GetByID(ctx context.Context, id string) (*models.Touchpoint, error)
	Save(ctx context.Context, touchpoint *models.Touchpoint) error
	Delete(ctx context.Context, id string) error

	// Reorder assigns order indexes following orderedIDs, which must be a
	// permutation of the journey's touchpoint ids. The whole reassignment is
	// atomic: on any error no index changes.
	Reorder(ctx context.Context, journeyID string, orderedIDs []string) error

	// SetRemoteTemplateID durably links a touchpoint to its remote template.
	SetRemoteTemplateID(ctx context.Context, id, remoteTemplateID string) error
}

// SnapshotRepository stores immutable journey version snapshots.
type SnapshotRepository interface {
	ListByJourney(ctx context.Context, journeyID string) ([]*models.JourneyVersionSnapshot, error)
	GetByVersion(ctx context.Context, journeyID string, version int64) (*models.JourneyVersionSnapshot, error)
}

// LedgerRepository stores publish state entries. Upsert must be atomic so two
// workers racing on the same touchpoint id cannot interleave a lost update.
type LedgerRepository interface {
	Get(ctx context.Context, touchpointID string) (*models.PublishStateEntry, error)
	Upsert(ctx context.Context, entry *models.PublishStateEntry) error
}

// SyncRunRepository stores sync run reports.
type SyncRunRepository interface {
	Save(ctx context.Context, run *models.SyncRun) error
	GetByID(ctx context.Context, id string) (*models.SyncRun, error)
	List(ctx context.Context, limit int) ([]*models.SyncRun, error)
}

// ConflictRepository stores detected conflicts awaiting resolution.
type ConflictRepository interface {
	Save(ctx context.Context, record *models.ConflictRecord) error
	GetByID(ctx context.Context, id string) (*models.ConflictRecord, error)
	ListOpen(ctx context.Context) ([]*models.ConflictRecord, error)
}

// Persistence aggregates the repositories of one backing store.
type Persistence interface {
	JourneyRepository() JourneyRepository
	TouchpointRepository() TouchpointRepository
	SnapshotRepository() SnapshotRepository
	LedgerRepository() LedgerRepository
	SyncRunRepository() SyncRunRepository
	ConflictRepository() ConflictRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
