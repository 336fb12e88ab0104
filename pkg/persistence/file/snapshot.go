package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// SnapshotRepository handles version snapshot file operations. Snapshots are
// written by the journey repository (so writes share its atomicity) and only
// read here.
type SnapshotRepository struct {
	p *Persistence
}

func snapshotFileID(journeyID string, version int64) string {
	return fmt.Sprintf("%s@%d", journeyID, version)
}

// ListByJourney returns all snapshots for a journey in ascending version order.
func (sr *SnapshotRepository) ListByJourney(_ context.Context, journeyID string) ([]*models.JourneyVersionSnapshot, error) {
	sr.p.mu.RLock()
	defer sr.p.mu.RUnlock()

	ids, err := sr.p.listIDs(snapshotsDir)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*models.JourneyVersionSnapshot, 0)

	for _, id := range ids {
		if !strings.HasPrefix(id, journeyID+"@") {
			continue
		}

		snapshot := &models.JourneyVersionSnapshot{}
		if err := sr.p.readJSON(snapshotsDir, id, snapshot); err != nil {
			return nil, persistence.NewJourneyError("ListSnapshots", journeyID, err)
		}

		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Version < snapshots[j].Version
	})

	return snapshots, nil
}

func (sr *SnapshotRepository) GetByVersion(_ context.Context, journeyID string, version int64) (*models.JourneyVersionSnapshot, error) {
	sr.p.mu.RLock()
	defer sr.p.mu.RUnlock()

	snapshot := &models.JourneyVersionSnapshot{}

	if err := sr.p.readJSON(snapshotsDir, snapshotFileID(journeyID, version), snapshot); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewJourneyError("GetSnapshot", journeyID, persistence.ErrSnapshotNotFound)
		}

		return nil, persistence.NewJourneyError("GetSnapshot", journeyID, err)
	}

	return snapshot, nil
}
