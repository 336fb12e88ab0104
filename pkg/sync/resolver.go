package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/marketloop/journeysync/pkg/conflict"
	"github.com/marketloop/journeysync/pkg/events"
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/publisher"
)

// ResolveConflict applies an explicit policy to one open conflict record:
// skip leaves the remote untouched, overwrite force-publishes local state,
// merge runs the last-writer-wins decision. The record is marked resolved
// only after the chosen action succeeded.
func (o *Orchestrator) ResolveConflict(ctx context.Context, conflictID string, resolution conflict.Resolution) (*models.ConflictRecord, error) {
	if _, err := conflict.ParseResolution(string(resolution)); err != nil {
		return nil, err
	}

	if resolution == conflict.ResolutionManual {
		return nil, ErrManualNotAResolution
	}

	record, err := o.persistence.ConflictRepository().GetByID(ctx, conflictID)
	if err != nil {
		return nil, err
	}

	if record.Status != models.ConflictStatusOpen {
		return nil, fmt.Errorf("%w: %s", ErrConflictAlreadyResolved, conflictID)
	}

	structural := conflict.Kind(record.Kind) == conflict.KindStepCountMismatch
	if resolution == conflict.ResolutionMerge && structural {
		return nil, fmt.Errorf("%w: %s", conflict.ErrMergeNotAllowed, record.Kind)
	}

	switch resolution {
	case conflict.ResolutionSkip:
		// Nothing to do remotely.
	case conflict.ResolutionOverwrite:
		if err := o.overwriteConflict(ctx, record); err != nil {
			return nil, err
		}
	case conflict.ResolutionMerge:
		if err := o.mergeConflict(ctx, record); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	record.Status = models.ConflictStatusResolved
	record.Resolution = string(resolution)
	record.ResolvedAt = &now

	if err := o.persistence.ConflictRepository().Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting conflict resolution: %w", err)
	}

	o.publishEvent(ctx, record.ID, events.ConflictResolved{
		BaseEvent:  o.baseEvent(events.ConflictResolvedEvent),
		ConflictID: record.ID,
		Resolution: string(resolution),
	})

	o.logger.InfoContext(ctx, "Conflict resolved",
		"conflict_id", record.ID, "resolution", resolution)

	return record, nil
}

// overwriteConflict force-publishes local state over the remote copy. For a
// journey-level conflict every publishable touchpoint is re-sent.
func (o *Orchestrator) overwriteConflict(ctx context.Context, record *models.ConflictRecord) error {
	journey, err := o.persistence.JourneyRepository().GetByID(ctx, record.JourneyID)
	if err != nil {
		return err
	}

	opts := publisher.Options{Force: true}

	if record.TouchpointID != "" {
		tp, err := o.persistence.TouchpointRepository().GetByID(ctx, record.TouchpointID)
		if err != nil {
			return err
		}

		if _, err := o.publishOne(ctx, journey, tp, opts); err != nil {
			return fmt.Errorf("overwriting touchpoint %s: %w", tp.ID, err)
		}

		return nil
	}

	touchpoints, err := o.persistence.TouchpointRepository().ListByJourney(ctx, record.JourneyID)
	if err != nil {
		return err
	}

	for _, tp := range touchpoints {
		if !tp.Publishable() {
			continue
		}

		if _, err := o.publishOne(ctx, journey, tp, opts); err != nil {
			return fmt.Errorf("overwriting touchpoint %s: %w", tp.ID, err)
		}
	}

	return nil
}

// mergeConflict runs the last-writer-wins decision for one touchpoint-level
// conflict: the newer side wins, the ledger records the winner.
func (o *Orchestrator) mergeConflict(ctx context.Context, record *models.ConflictRecord) error {
	journey, err := o.persistence.JourneyRepository().GetByID(ctx, record.JourneyID)
	if err != nil {
		return err
	}

	tp, err := o.persistence.TouchpointRepository().GetByID(ctx, record.TouchpointID)
	if err != nil {
		return err
	}

	if tp.RemoteTemplateID == "" {
		return fmt.Errorf("%w: touchpoint %s has no remote counterpart", conflict.ErrMergeNotAllowed, tp.ID)
	}

	meta, err := o.remote.TemplateMeta(ctx, journey.ClientID, tp.RemoteTemplateID)
	if err != nil {
		return fmt.Errorf("fetching remote template %s: %w", tp.RemoteTemplateID, err)
	}

	if meta.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: remote modification time unavailable", conflict.ErrMergeNotAllowed)
	}

	c := conflict.Conflict{
		Kind:         conflict.Kind(record.Kind),
		JourneyID:    record.JourneyID,
		TouchpointID: record.TouchpointID,
		Local:        record.LocalValue,
		Remote:       record.RemoteValue,
	}

	switch conflict.Resolve(conflict.ResolutionMerge, c, tp.UpdatedAt, meta.UpdatedAt, o.logger) {
	case conflict.ActionAdoptRemote:
		if item := o.adoptRemote(ctx, journey, tp, false); item.Outcome == models.SyncOutcomeFailed {
			return fmt.Errorf("adopting remote copy for %s: %s", tp.ID, item.Error)
		}

		return nil
	case conflict.ActionPublish:
		if _, err := o.publishOne(ctx, journey, tp, publisher.Options{Force: true}); err != nil {
			return fmt.Errorf("publishing local copy for %s: %w", tp.ID, err)
		}

		return nil
	}

	return fmt.Errorf("%w: merge could not pick a winner", conflict.ErrMergeNotAllowed)
}
