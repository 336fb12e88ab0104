package journey

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marketloop/journeysync/pkg/eventbus"
	"github.com/marketloop/journeysync/pkg/events"
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

const initialChangeLog = "Initial creation"

// Service is the versioned entity store for journeys. All mutations go
// through the journey repository's atomic compare-and-increment; the service
// never holds its own locks, so concurrent editors never block each other and
// the loser of a race gets a conflict response.
type Service struct {
	persistence persistence.Persistence
	bus         eventbus.EventPublisher
	logger      *slog.Logger
}

// NewService creates a new journey service. The bus may be nil, in which case
// lifecycle events are not emitted.
func NewService(p persistence.Persistence, bus eventbus.EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		persistence: p,
		bus:         bus,
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Service) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateJourneyRequest describes a new journey.
type CreateJourneyRequest struct {
	ClientID  string         `json:"client_id" validate:"required"`
	Name      string         `json:"name"      validate:"required,min=3"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedBy string         `json:"created_by,omitempty"`
}

// CreateJourney stores a new journey at version 1 together with its initial
// version snapshot. Either both exist afterwards or neither does.
func (s *Service) CreateJourney(ctx context.Context, req CreateJourneyRequest) (*models.Journey, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrJourneyNameRequired
	}

	if strings.TrimSpace(req.ClientID) == "" {
		return nil, ErrClientIDRequired
	}

	journeyID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate journey ID: %w", err)
	}

	snapshotID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate snapshot ID: %w", err)
	}

	now := time.Now().UTC()

	journey := &models.Journey{
		ID:        journeyID.String(),
		ClientID:  req.ClientID,
		Name:      req.Name,
		Status:    models.JourneyStatusDraft,
		Version:   1,
		Metadata:  req.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	snapshot := &models.JourneyVersionSnapshot{
		ID:        snapshotID.String(),
		JourneyID: journey.ID,
		Version:   1,
		Snapshot:  models.JourneySnapshotPayload{},
		ChangeLog: initialChangeLog,
		CreatedBy: req.CreatedBy,
		CreatedAt: now,
	}

	if err := s.persistence.JourneyRepository().Create(ctx, journey, snapshot); err != nil {
		return nil, fmt.Errorf("failed to create journey: %w", err)
	}

	s.logger.InfoContext(ctx, "Created journey", "journey_id", journey.ID, "client_id", journey.ClientID)

	s.publishEvent(ctx, journey.ID, events.JourneyCreated{
		BaseEvent: s.baseEvent(events.JourneyCreatedEvent),
		JourneyID: journey.ID,
		ClientID:  journey.ClientID,
	})

	return journey, nil
}

// GetJourney retrieves a journey by id.
func (s *Service) GetJourney(ctx context.Context, id string) (*models.Journey, error) {
	return s.persistence.JourneyRepository().GetByID(ctx, id)
}

// ListJourneysRequest contains options for listing journeys.
type ListJourneysRequest struct {
	Limit    int
	Offset   int
	ClientID string
	Status   *models.JourneyStatus
}

// ListJourneys retrieves journeys with filtering and pagination.
func (s *Service) ListJourneys(ctx context.Context, req ListJourneysRequest) (*persistence.JourneyListResult, error) {
	if req.Status != nil && !models.ValidJourneyStatus(*req.Status) {
		return nil, ErrInvalidStatus
	}

	return s.persistence.JourneyRepository().List(ctx, persistence.ListJourneysOptions{
		Limit:    req.Limit,
		Offset:   req.Offset,
		ClientID: req.ClientID,
		Status:   req.Status,
	})
}

// UpdateJourneyRequest describes a partial journey update. SubmittedVersion
// nil means the caller does not track versions and the update proceeds
// unconditionally, still incrementing the version.
type UpdateJourneyRequest struct {
	ID               string
	SubmittedVersion *int64
	Patch            models.JourneyPatch
}

// UpdateJourney applies the patch under the optimistic lock. On a stale
// submitted version it returns a *persistence.VersionConflictError carrying
// the current entity and both version numbers; stored state is untouched.
func (s *Service) UpdateJourney(ctx context.Context, req UpdateJourneyRequest) (*models.Journey, error) {
	if req.Patch.Name == nil && req.Patch.Status == nil && req.Patch.Metadata == nil {
		return nil, ErrEmptyPatch
	}

	if req.Patch.Status != nil && !models.ValidJourneyStatus(*req.Patch.Status) {
		return nil, ErrInvalidStatus
	}

	if req.Patch.Name != nil && strings.TrimSpace(*req.Patch.Name) == "" {
		return nil, ErrJourneyNameRequired
	}

	updated, err := s.persistence.JourneyRepository().Update(ctx, req.ID, req.SubmittedVersion, func(j *models.Journey) error {
		req.Patch.Apply(j)

		return nil
	})
	if err != nil {
		if conflict, ok := persistence.AsVersionConflict(err); ok {
			s.logger.InfoContext(ctx, "Journey update lost version race",
				"journey_id", req.ID,
				"submitted_version", conflict.SubmittedVersion,
				"current_version", conflict.CurrentVersion)
		}

		return nil, err
	}

	s.publishEvent(ctx, updated.ID, events.JourneyUpdated{
		BaseEvent: s.baseEvent(events.JourneyUpdatedEvent),
		JourneyID: updated.ID,
		Version:   updated.Version,
	})

	return updated, nil
}

// DeleteJourney removes the journey and the touchpoints it owns.
func (s *Service) DeleteJourney(ctx context.Context, id string) error {
	if err := s.persistence.JourneyRepository().Delete(ctx, id); err != nil {
		return err
	}

	s.publishEvent(ctx, id, events.JourneyDeleted{
		BaseEvent: s.baseEvent(events.JourneyDeletedEvent),
		JourneyID: id,
	})

	return nil
}

// CreateVersionSnapshot captures the journey and its touchpoints as an
// immutable snapshot at currentVersion + 1 and advances the stored version to
// match, atomically.
func (s *Service) CreateVersionSnapshot(ctx context.Context, journeyID, changeLog, createdBy string) (*models.JourneyVersionSnapshot, error) {
	journey, err := s.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	touchpoints, err := s.persistence.TouchpointRepository().ListByJourney(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load touchpoints for snapshot: %w", err)
	}

	snapshotID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate snapshot ID: %w", err)
	}

	snapshot := &models.JourneyVersionSnapshot{
		ID:        snapshotID.String(),
		JourneyID: journeyID,
		Version:   journey.Version + 1,
		Snapshot: models.JourneySnapshotPayload{
			Journey:     journey,
			Touchpoints: touchpoints,
		},
		ChangeLog: changeLog,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.persistence.JourneyRepository().AdvanceVersionWithSnapshot(ctx, journeyID, snapshot); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Created version snapshot",
		"journey_id", journeyID, "version", snapshot.Version)

	return snapshot, nil
}

// ListVersionSnapshots returns the journey's snapshot history in ascending
// version order.
func (s *Service) ListVersionSnapshots(ctx context.Context, journeyID string) ([]*models.JourneyVersionSnapshot, error) {
	return s.persistence.SnapshotRepository().ListByJourney(ctx, journeyID)
}

func (s *Service) publishEvent(ctx context.Context, key string, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Publish(ctx, key, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func (s *Service) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}
