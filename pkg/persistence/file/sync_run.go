package file

import (
	"context"
	"os"
	"sort"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// SyncRunRepository stores sync run reports, one file per run id.
type SyncRunRepository struct {
	p *Persistence
}

func (rr *SyncRunRepository) Save(_ context.Context, run *models.SyncRun) error {
	rr.p.mu.Lock()
	defer rr.p.mu.Unlock()

	return rr.p.writeJSON(runsDir, run.ID, run)
}

func (rr *SyncRunRepository) GetByID(_ context.Context, id string) (*models.SyncRun, error) {
	rr.p.mu.RLock()
	defer rr.p.mu.RUnlock()

	run := &models.SyncRun{}

	if err := rr.p.readJSON(runsDir, id, run); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrSyncRunNotFound
		}

		return nil, err
	}

	return run, nil
}

// List returns the most recent runs first, at most limit of them.
func (rr *SyncRunRepository) List(_ context.Context, limit int) ([]*models.SyncRun, error) {
	rr.p.mu.RLock()
	defer rr.p.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	ids, err := rr.p.listIDs(runsDir)
	if err != nil {
		return nil, err
	}

	runs := make([]*models.SyncRun, 0, len(ids))

	for _, id := range ids {
		run := &models.SyncRun{}
		if err := rr.p.readJSON(runsDir, id, run); err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}
