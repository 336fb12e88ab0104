package file

import (
	"context"
	"os"
	"sort"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// ConflictRepository stores conflict records, one file per record id.
type ConflictRepository struct {
	p *Persistence
}

func (cr *ConflictRepository) Save(_ context.Context, record *models.ConflictRecord) error {
	cr.p.mu.Lock()
	defer cr.p.mu.Unlock()

	return cr.p.writeJSON(conflictsDir, record.ID, record)
}

func (cr *ConflictRepository) GetByID(_ context.Context, id string) (*models.ConflictRecord, error) {
	cr.p.mu.RLock()
	defer cr.p.mu.RUnlock()

	record := &models.ConflictRecord{}

	if err := cr.p.readJSON(conflictsDir, id, record); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrConflictNotFound
		}

		return nil, err
	}

	return record, nil
}

func (cr *ConflictRepository) ListOpen(_ context.Context) ([]*models.ConflictRecord, error) {
	cr.p.mu.RLock()
	defer cr.p.mu.RUnlock()

	ids, err := cr.p.listIDs(conflictsDir)
	if err != nil {
		return nil, err
	}

	open := make([]*models.ConflictRecord, 0)

	for _, id := range ids {
		record := &models.ConflictRecord{}
		if err := cr.p.readJSON(conflictsDir, id, record); err != nil {
			return nil, err
		}

		if record.Status == models.ConflictStatusOpen {
			open = append(open, record)
		}
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].DetectedAt.Before(open[j].DetectedAt)
	})

	return open, nil
}
