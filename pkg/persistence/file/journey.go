package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// JourneyRepository handles journey-related file operations.
type JourneyRepository struct {
	p *Persistence
}

// List returns paginated and filtered journeys with in-memory operations.
func (jr *JourneyRepository) List(_ context.Context, opts persistence.ListJourneysOptions) (*persistence.JourneyListResult, error) {
	jr.p.mu.RLock()
	defer jr.p.mu.RUnlock()

	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	ids, err := jr.p.listIDs(journeysDir)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Journey, 0, len(ids))

	for _, id := range ids {
		journey := &models.Journey{}
		if err := jr.p.readJSON(journeysDir, id, journey); err != nil {
			return nil, persistence.NewJourneyError("List", id, err)
		}

		if journey.DeletedAt != nil {
			continue
		}

		if opts.ClientID != "" && journey.ClientID != opts.ClientID {
			continue
		}

		if opts.Status != nil && journey.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, journey)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	totalCount := int64(len(filtered))
	start := opts.Offset
	end := opts.Offset + opts.Limit

	if start >= len(filtered) {
		return &persistence.JourneyListResult{
			Journeys:    make([]*models.Journey, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	if end > len(filtered) {
		end = len(filtered)
	}

	return &persistence.JourneyListResult{
		Journeys:    filtered[start:end],
		TotalCount:  totalCount,
		HasNextPage: end < len(filtered),
	}, nil
}

func (jr *JourneyRepository) GetByID(_ context.Context, id string) (*models.Journey, error) {
	jr.p.mu.RLock()
	defer jr.p.mu.RUnlock()

	return jr.load(id)
}

// Create stores the journey and its initial snapshot. The write lock spans
// both writes, so no reader can observe one without the other.
func (jr *JourneyRepository) Create(_ context.Context, journey *models.Journey, snapshot *models.JourneyVersionSnapshot) error {
	jr.p.mu.Lock()
	defer jr.p.mu.Unlock()

	if _, err := jr.load(journey.ID); err == nil {
		return persistence.NewJourneyError("Create", journey.ID, persistence.ErrJourneyAlreadyExists)
	}

	if err := jr.p.writeJSON(journeysDir, journey.ID, journey); err != nil {
		return persistence.NewJourneyError("Create", journey.ID, err)
	}

	if err := jr.p.writeJSON(snapshotsDir, snapshotFileID(snapshot.JourneyID, snapshot.Version), snapshot); err != nil {
		// Roll the journey back so neither half exists.
		_ = jr.p.removeFile(journeysDir, journey.ID)

		return persistence.NewJourneyError("Create", journey.ID, err)
	}

	return nil
}

// Update applies fn and increments the version under the write lock. When
// expectedVersion is stale, the stored journey is returned untouched inside
// the conflict error.
func (jr *JourneyRepository) Update(_ context.Context, id string, expectedVersion *int64, fn func(*models.Journey) error) (*models.Journey, error) {
	jr.p.mu.Lock()
	defer jr.p.mu.Unlock()

	journey, err := jr.load(id)
	if err != nil {
		return nil, err
	}

	if expectedVersion != nil && *expectedVersion != journey.Version {
		return nil, &persistence.VersionConflictError{
			JourneyID:        id,
			SubmittedVersion: *expectedVersion,
			CurrentVersion:   journey.Version,
			Current:          journey,
		}
	}

	if err := fn(journey); err != nil {
		return nil, err
	}

	journey.Version++
	journey.UpdatedAt = time.Now().UTC()

	if err := jr.p.writeJSON(journeysDir, id, journey); err != nil {
		return nil, persistence.NewJourneyError("Update", id, err)
	}

	return journey, nil
}

// AdvanceVersionWithSnapshot writes the snapshot and moves the journey version
// forward to match it, atomically under the write lock.
func (jr *JourneyRepository) AdvanceVersionWithSnapshot(_ context.Context, journeyID string, snapshot *models.JourneyVersionSnapshot) (*models.Journey, error) {
	jr.p.mu.Lock()
	defer jr.p.mu.Unlock()

	journey, err := jr.load(journeyID)
	if err != nil {
		return nil, err
	}

	if snapshot.Version != journey.Version+1 {
		return nil, persistence.NewJourneyError("AdvanceVersionWithSnapshot", journeyID,
			fmt.Errorf("snapshot version %d does not follow current version %d: %w",
				snapshot.Version, journey.Version, persistence.ErrVersionConflict))
	}

	if err := jr.p.writeJSON(snapshotsDir, snapshotFileID(journeyID, snapshot.Version), snapshot); err != nil {
		return nil, persistence.NewJourneyError("AdvanceVersionWithSnapshot", journeyID, err)
	}

	journey.Version = snapshot.Version
	journey.UpdatedAt = time.Now().UTC()

	if err := jr.p.writeJSON(journeysDir, journeyID, journey); err != nil {
		return nil, persistence.NewJourneyError("AdvanceVersionWithSnapshot", journeyID, err)
	}

	return journey, nil
}

// Delete soft deletes the journey and removes the touchpoints it owns.
// Snapshots are immutable history and ledger entries are weak references;
// both stay.
func (jr *JourneyRepository) Delete(_ context.Context, id string) error {
	jr.p.mu.Lock()
	defer jr.p.mu.Unlock()

	journey, err := jr.load(id)
	if err != nil {
		return err
	}

	touchpointIDs, err := jr.p.listIDs(touchpointsDir)
	if err != nil {
		return persistence.NewJourneyError("Delete", id, err)
	}

	for _, tpID := range touchpointIDs {
		tp := &models.Touchpoint{}
		if err := jr.p.readJSON(touchpointsDir, tpID, tp); err != nil {
			return persistence.NewJourneyError("Delete", id, err)
		}

		if tp.JourneyID != id {
			continue
		}

		if err := jr.p.removeFile(touchpointsDir, tpID); err != nil {
			return persistence.NewJourneyError("Delete", id, err)
		}
	}

	now := time.Now().UTC()
	journey.DeletedAt = &now
	journey.UpdatedAt = now

	if err := jr.p.writeJSON(journeysDir, id, journey); err != nil {
		return persistence.NewJourneyError("Delete", id, err)
	}

	return nil
}

func (jr *JourneyRepository) load(id string) (*models.Journey, error) {
	journey := &models.Journey{}

	if err := jr.p.readJSON(journeysDir, id, journey); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewJourneyError("GetByID", id, persistence.ErrJourneyNotFound)
		}

		return nil, persistence.NewJourneyError("GetByID", id, err)
	}

	if journey.DeletedAt != nil {
		return nil, persistence.NewJourneyError("GetByID", id, persistence.ErrJourneyNotFound)
	}

	return journey, nil
}
