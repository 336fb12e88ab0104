package file

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// TouchpointRepository handles touchpoint-related file operations.
type TouchpointRepository struct {
	p *Persistence
}

// ListByJourney returns the journey's touchpoints ordered by order index.
func (tr *TouchpointRepository) ListByJourney(_ context.Context, journeyID string) ([]*models.Touchpoint, error) {
	tr.p.mu.RLock()
	defer tr.p.mu.RUnlock()

	return tr.listByJourney(journeyID)
}

func (tr *TouchpointRepository) listByJourney(journeyID string) ([]*models.Touchpoint, error) {
	ids, err := tr.p.listIDs(touchpointsDir)
	if err != nil {
		return nil, err
	}

	touchpoints := make([]*models.Touchpoint, 0)

	for _, id := range ids {
		tp := &models.Touchpoint{}
		if err := tr.p.readJSON(touchpointsDir, id, tp); err != nil {
			return nil, &persistence.TouchpointError{Op: "ListByJourney", JourneyID: journeyID, TouchpointID: id, Err: err}
		}

		if tp.JourneyID == journeyID {
			touchpoints = append(touchpoints, tp)
		}
	}

	sort.Slice(touchpoints, func(i, j int) bool {
		return touchpoints[i].OrderIndex < touchpoints[j].OrderIndex
	})

	return touchpoints, nil
}

func (tr *TouchpointRepository) GetByID(_ context.Context, id string) (*models.Touchpoint, error) {
	tr.p.mu.RLock()
	defer tr.p.mu.RUnlock()

	return tr.load(id)
}

func (tr *TouchpointRepository) Save(_ context.Context, touchpoint *models.Touchpoint) error {
	tr.p.mu.Lock()
	defer tr.p.mu.Unlock()

	now := time.Now().UTC()
	if touchpoint.CreatedAt.IsZero() {
		touchpoint.CreatedAt = now
	}

	touchpoint.UpdatedAt = now

	if err := tr.p.writeJSON(touchpointsDir, touchpoint.ID, touchpoint); err != nil {
		return &persistence.TouchpointError{Op: "Save", JourneyID: touchpoint.JourneyID, TouchpointID: touchpoint.ID, Err: err}
	}

	return nil
}

func (tr *TouchpointRepository) Delete(_ context.Context, id string) error {
	tr.p.mu.Lock()
	defer tr.p.mu.Unlock()

	if _, err := tr.load(id); err != nil {
		return err
	}

	return tr.p.removeFile(touchpointsDir, id)
}

// Reorder rewrites order indexes following orderedIDs. The id set must match
// the journey's touchpoints exactly; nothing is written otherwise.
func (tr *TouchpointRepository) Reorder(_ context.Context, journeyID string, orderedIDs []string) error {
	tr.p.mu.Lock()
	defer tr.p.mu.Unlock()

	current, err := tr.listByJourney(journeyID)
	if err != nil {
		return err
	}

	if len(current) != len(orderedIDs) {
		return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, Err: persistence.ErrInvalidReorder}
	}

	byID := make(map[string]*models.Touchpoint, len(current))
	for _, tp := range current {
		byID[tp.ID] = tp
	}

	// Validate the full permutation before the first write.
	for _, id := range orderedIDs {
		if _, ok := byID[id]; !ok {
			return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, TouchpointID: id, Err: persistence.ErrInvalidReorder}
		}
	}

	now := time.Now().UTC()

	for index, id := range orderedIDs {
		tp := byID[id]
		tp.OrderIndex = index
		tp.UpdatedAt = now

		if err := tr.p.writeJSON(touchpointsDir, id, tp); err != nil {
			return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, TouchpointID: id, Err: err}
		}

		delete(byID, id)
	}

	return nil
}

// SetRemoteTemplateID durably links the touchpoint to its remote template.
func (tr *TouchpointRepository) SetRemoteTemplateID(_ context.Context, id, remoteTemplateID string) error {
	tr.p.mu.Lock()
	defer tr.p.mu.Unlock()

	tp, err := tr.load(id)
	if err != nil {
		return err
	}

	tp.RemoteTemplateID = remoteTemplateID
	tp.UpdatedAt = time.Now().UTC()

	if err := tr.p.writeJSON(touchpointsDir, id, tp); err != nil {
		return &persistence.TouchpointError{Op: "SetRemoteTemplateID", TouchpointID: id, Err: err}
	}

	return nil
}

func (tr *TouchpointRepository) load(id string) (*models.Touchpoint, error) {
	tp := &models.Touchpoint{}

	if err := tr.p.readJSON(touchpointsDir, id, tp); err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.TouchpointError{Op: "GetByID", TouchpointID: id, Err: persistence.ErrTouchpointNotFound}
		}

		return nil, &persistence.TouchpointError{Op: "GetByID", TouchpointID: id, Err: err}
	}

	return tp, nil
}
