// Package sync runs batch synchronization of journeys to the external
// workflow platform: it selects syncable journeys, detects conflicts before
// touching the remote, publishes touchpoints through the idempotency ledger,
// and records a durable report for every run.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketloop/journeysync/pkg/conflict"
	"github.com/marketloop/journeysync/pkg/eventbus"
	"github.com/marketloop/journeysync/pkg/events"
	"github.com/marketloop/journeysync/pkg/ledger"
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
	"github.com/marketloop/journeysync/pkg/publisher"
	"github.com/marketloop/journeysync/pkg/remote"
)

const listPageSize = 100

// Config tunes one orchestrator instance.
type Config struct {
	// Workers bounds how many touchpoints publish concurrently within a
	// journey.
	Workers int

	// Retry governs remote publish attempts.
	Retry RetryPolicy
}

// RunRequest describes one requested sync run.
type RunRequest struct {
	Scope  models.SyncScope
	DryRun bool

	// Force bypasses the ledger's unchanged-content gate and the conflict
	// gate; confirmed publishes are still recorded.
	Force bool

	// Resolution is the caller's policy for conflicts found during the run.
	// Empty means manual: conflicted journeys are recorded and skipped.
	Resolution conflict.Resolution
}

// Orchestrator coordinates a sync run end to end. Conflicts fail closed: a
// conflicted journey is never partially synced unless the caller supplied a
// policy or forced the run.
type Orchestrator struct {
	persistence persistence.Persistence
	publisher   *publisher.Publisher
	detector    *conflict.Detector
	ledger      *ledger.Service
	remote      conflict.RemoteReader
	bus         eventbus.EventPublisher
	workers     int
	retry       RetryPolicy
	logger      *slog.Logger
}

func NewOrchestrator(
	store persistence.Persistence,
	pub *publisher.Publisher,
	detector *conflict.Detector,
	ledgerService *ledger.Service,
	remoteReader conflict.RemoteReader,
	bus eventbus.EventPublisher,
	config Config,
	logger *slog.Logger,
) *Orchestrator {
	workers := config.Workers
	if workers <= 0 {
		workers = 4
	}

	retry := config.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}

	return &Orchestrator{
		persistence: store,
		publisher:   pub,
		detector:    detector,
		ledger:      ledgerService,
		remote:      remoteReader,
		bus:         bus,
		workers:     workers,
		retry:       retry,
		logger:      logger.With(slog.String("module", "sync")),
	}
}

// Run executes one sync run and returns its durable report. The report is
// persisted even when the run fails partway; the returned error reflects
// run-level failures only, per-item failures live in the report.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*models.SyncRun, error) {
	run := &models.SyncRun{
		ID:        uuid.NewString(),
		Scope:     req.Scope,
		DryRun:    req.DryRun,
		Force:     req.Force,
		Status:    models.SyncRunStatusPending,
		StartedAt: time.Now().UTC(),
	}

	// The run is durable before any work starts, so an operator can see it
	// queued even if the process dies between accepting and processing.
	if err := o.persistence.SyncRunRepository().Save(ctx, run); err != nil {
		return nil, fmt.Errorf("recording sync run: %w", err)
	}

	run.Status = models.SyncRunStatusRunning
	if err := o.persistence.SyncRunRepository().Save(ctx, run); err != nil {
		return nil, fmt.Errorf("recording sync run: %w", err)
	}

	o.publishEvent(ctx, run.ID, events.SyncRunStarted{
		BaseEvent: o.baseEvent(events.SyncRunStartedEvent),
		RunID:     run.ID,
		Scope:     run.Scope,
		DryRun:    run.DryRun,
	})

	o.logger.InfoContext(ctx, "Sync run started",
		"run_id", run.ID, "scope", req.Scope, "dry_run", req.DryRun, "force", req.Force)

	journeys, err := o.selectJourneys(ctx, req.Scope)
	if err != nil {
		return o.finishRun(ctx, run, fmt.Errorf("selecting journeys: %w", err))
	}

	var runErr error

	for _, journey := range journeys {
		// Cancellation is honored between journeys so a journey is never
		// left half-synced by a shutdown.
		if ctx.Err() != nil {
			runErr = fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())

			break
		}

		items, fatal := o.syncJourney(ctx, journey, req)

		run.Summary.Journeys++
		for _, item := range items {
			run.Items = append(run.Items, item)
			run.Summary.Count(item.Outcome)
		}

		if fatal != nil {
			runErr = fatal

			break
		}
	}

	return o.finishRun(ctx, run, runErr)
}

func (o *Orchestrator) finishRun(ctx context.Context, run *models.SyncRun, runErr error) (*models.SyncRun, error) {
	now := time.Now().UTC()
	run.FinishedAt = &now

	if runErr != nil {
		run.Status = models.SyncRunStatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = models.SyncRunStatusCompleted
	}

	if err := o.persistence.SyncRunRepository().Save(ctx, run); err != nil {
		o.logger.ErrorContext(ctx, "Failed to persist sync run report", "run_id", run.ID, "error", err)
	}

	duration := now.Sub(run.StartedAt)

	if runErr != nil {
		o.publishEvent(ctx, run.ID, events.SyncRunFailed{
			BaseEvent: o.baseEvent(events.SyncRunFailedEvent),
			RunID:     run.ID,
			Error:     runErr.Error(),
			Duration:  duration,
		})

		o.logger.ErrorContext(ctx, "Sync run failed",
			"run_id", run.ID, "error", runErr, "summary", run.Summary)

		return run, runErr
	}

	o.publishEvent(ctx, run.ID, events.SyncRunFinished{
		BaseEvent: o.baseEvent(events.SyncRunFinishedEvent),
		RunID:     run.ID,
		Summary:   run.Summary,
		Duration:  duration,
	})

	o.logger.InfoContext(ctx, "Sync run finished",
		"run_id", run.ID, "summary", run.Summary, "duration", duration)

	return run, nil
}

// selectJourneys resolves the scope to the set of syncable journeys.
func (o *Orchestrator) selectJourneys(ctx context.Context, scope models.SyncScope) ([]*models.Journey, error) {
	repo := o.persistence.JourneyRepository()

	if scope.JourneyID != "" {
		journey, err := repo.GetByID(ctx, scope.JourneyID)
		if err != nil {
			return nil, err
		}

		if !journey.Syncable() {
			return nil, nil
		}

		return []*models.Journey{journey}, nil
	}

	var syncable []*models.Journey

	for offset := 0; ; offset += listPageSize {
		page, err := repo.List(ctx, persistence.ListJourneysOptions{
			Limit:    listPageSize,
			Offset:   offset,
			ClientID: scope.ClientID,
		})
		if err != nil {
			return nil, err
		}

		for _, journey := range page.Journeys {
			if journey.Syncable() {
				syncable = append(syncable, journey)
			}
		}

		if !page.HasNextPage {
			break
		}
	}

	return syncable, nil
}

// syncJourney syncs one journey's touchpoints. The returned error is
// non-nil only for fatal failures that must abort the whole run.
func (o *Orchestrator) syncJourney(ctx context.Context, journey *models.Journey, req RunRequest) ([]models.SyncItemResult, error) {
	touchpoints, err := o.persistence.TouchpointRepository().ListByJourney(ctx, journey.ID)
	if err != nil {
		return []models.SyncItemResult{{
			JourneyID: journey.ID,
			Outcome:   models.SyncOutcomeFailed,
			Error:     err.Error(),
		}}, nil
	}

	conflicts, err := o.detector.DetectJourney(ctx, journey.ClientID, journey, touchpoints)
	if err != nil {
		if remote.IsFatal(err) {
			return nil, fmt.Errorf("detecting conflicts for journey %s: %w", journey.ID, err)
		}

		return []models.SyncItemResult{{
			JourneyID: journey.ID,
			Outcome:   models.SyncOutcomeFailed,
			Error:     err.Error(),
		}}, nil
	}

	actions := map[string]conflict.Action{}

	if len(conflicts) > 0 && !req.Force {
		resolution := req.Resolution
		if resolution == "" {
			resolution = conflict.ResolutionManual
		}

		if err := conflict.ValidateResolution(resolution, conflicts); err != nil {
			o.logger.WarnContext(ctx, "Resolution rejected for journey, failing closed",
				"journey_id", journey.ID, "resolution", resolution, "error", err)

			resolution = conflict.ResolutionManual
		}

		journeySkip := false

		for _, c := range conflicts {
			action := o.resolveConflictAction(ctx, resolution, c, journey, touchpoints)

			if c.TouchpointID == "" {
				// A journey-level structural conflict gates the whole journey.
				switch action {
				case conflict.ActionSkip:
					journeySkip = true
				case conflict.ActionManual:
					return o.reportConflicts(ctx, journey, conflicts, req.DryRun), nil
				}

				continue
			}

			if action == conflict.ActionManual {
				return o.reportConflicts(ctx, journey, conflicts, req.DryRun), nil
			}

			actions[c.TouchpointID] = action
		}

		if journeySkip {
			items := make([]models.SyncItemResult, 0, len(touchpoints))
			for _, tp := range touchpoints {
				items = append(items, models.SyncItemResult{
					JourneyID:    journey.ID,
					TouchpointID: tp.ID,
					Outcome:      models.SyncOutcomeSkipped,
					Action:       "none",
				})
			}

			return items, nil
		}
	} else if len(conflicts) > 0 {
		o.logger.WarnContext(ctx, "Conflicts present but run is forced, publishing anyway",
			"journey_id", journey.ID, "conflicts", len(conflicts))
	}

	return o.publishTouchpoints(ctx, journey, touchpoints, actions, req)
}

// resolveConflictAction maps the caller's policy onto the action for one
// conflict. Merge needs the remote modification time for its last-writer-wins
// decision; when the platform cannot provide one, the conflict stays manual.
func (o *Orchestrator) resolveConflictAction(ctx context.Context, resolution conflict.Resolution, c conflict.Conflict, journey *models.Journey, touchpoints []*models.Touchpoint) conflict.Action {
	if resolution != conflict.ResolutionMerge || c.TouchpointID == "" {
		return conflict.Resolve(resolution, c, time.Time{}, time.Time{}, o.logger)
	}

	var tp *models.Touchpoint

	for _, candidate := range touchpoints {
		if candidate.ID == c.TouchpointID {
			tp = candidate

			break
		}
	}

	if tp == nil || tp.RemoteTemplateID == "" {
		return conflict.ActionManual
	}

	meta, err := o.remote.TemplateMeta(ctx, journey.ClientID, tp.RemoteTemplateID)
	if err != nil || meta.UpdatedAt.IsZero() {
		o.logger.WarnContext(ctx, "Cannot establish remote modification time, deferring merge",
			"touchpoint_id", tp.ID, "error", err)

		return conflict.ActionManual
	}

	return conflict.Resolve(resolution, c, tp.UpdatedAt, meta.UpdatedAt, o.logger)
}

// reportConflicts records a journey's conflicts and marks its items
// conflicted. Nothing is published: conflicts fail closed.
func (o *Orchestrator) reportConflicts(ctx context.Context, journey *models.Journey, conflicts []conflict.Conflict, dryRun bool) []models.SyncItemResult {
	items := make([]models.SyncItemResult, 0, len(conflicts))

	for _, c := range conflicts {
		items = append(items, models.SyncItemResult{
			JourneyID:    journey.ID,
			TouchpointID: c.TouchpointID,
			Outcome:      models.SyncOutcomeConflicted,
			Error:        c.String(),
		})

		if dryRun {
			continue
		}

		record := &models.ConflictRecord{
			ID:           uuid.NewString(),
			JourneyID:    c.JourneyID,
			TouchpointID: c.TouchpointID,
			Kind:         string(c.Kind),
			LocalValue:   c.Local,
			RemoteValue:  c.Remote,
			Detail:       c.Detail,
			Status:       models.ConflictStatusOpen,
			DetectedAt:   time.Now().UTC(),
		}

		if err := o.persistence.ConflictRepository().Save(ctx, record); err != nil {
			o.logger.ErrorContext(ctx, "Failed to record conflict",
				"journey_id", journey.ID, "touchpoint_id", c.TouchpointID, "error", err)

			continue
		}

		o.publishEvent(ctx, record.ID, events.ConflictDetected{
			BaseEvent:    o.baseEvent(events.ConflictDetectedEvent),
			ConflictID:   record.ID,
			JourneyID:    record.JourneyID,
			TouchpointID: record.TouchpointID,
			Kind:         record.Kind,
		})
	}

	o.logger.WarnContext(ctx, "Journey conflicted, skipping sync",
		"journey_id", journey.ID, "conflicts", len(conflicts))

	return items
}

// publishTouchpoints pushes a journey's publishable touchpoints through a
// bounded worker pool. Per-touchpoint serialization against concurrent runs
// is the ledger's job; the pool only bounds parallelism.
func (o *Orchestrator) publishTouchpoints(ctx context.Context, journey *models.Journey, touchpoints []*models.Touchpoint, actions map[string]conflict.Action, req RunRequest) ([]models.SyncItemResult, error) {
	var (
		mu    stdsync.Mutex
		wg    stdsync.WaitGroup
		items []models.SyncItemResult
		fatal error
	)

	sem := make(chan struct{}, o.workers)

	appendItem := func(item models.SyncItemResult) {
		mu.Lock()
		defer mu.Unlock()
		items = append(items, item)
	}

	for _, tp := range touchpoints {
		if !tp.Publishable() {
			appendItem(models.SyncItemResult{
				JourneyID:    journey.ID,
				TouchpointID: tp.ID,
				Outcome:      models.SyncOutcomeSkipped,
				Action:       "none",
			})

			continue
		}

		action, hasConflict := actions[tp.ID]
		if hasConflict {
			switch action {
			case conflict.ActionSkip:
				appendItem(models.SyncItemResult{
					JourneyID:    journey.ID,
					TouchpointID: tp.ID,
					Outcome:      models.SyncOutcomeSkipped,
					Action:       "none",
				})

				continue
			case conflict.ActionAdoptRemote:
				appendItem(o.adoptRemote(ctx, journey, tp, req.DryRun))

				continue
			}
		}

		// Overwriting a conflicted touchpoint must bypass the ledger gate:
		// the local hash still matches the last recorded publish, only the
		// remote copy drifted.
		force := req.Force || (hasConflict && action == conflict.ActionPublish)

		wg.Add(1)
		sem <- struct{}{}

		go func(tp *models.Touchpoint) {
			defer wg.Done()
			defer func() { <-sem }()

			item, err := o.publishOne(ctx, journey, tp, publisher.Options{Force: force, DryRun: req.DryRun})

			mu.Lock()
			defer mu.Unlock()

			items = append(items, item)

			if fatal == nil && remote.IsFatal(err) {
				fatal = fmt.Errorf("publishing touchpoint %s: %w", tp.ID, err)
			}
		}(tp)
	}

	wg.Wait()

	return items, fatal
}

// publishOne publishes a single touchpoint under the retry policy. The raw
// publish error is returned alongside the item so the caller can classify
// run-fatal failures.
func (o *Orchestrator) publishOne(ctx context.Context, journey *models.Journey, tp *models.Touchpoint, opts publisher.Options) (models.SyncItemResult, error) {
	result, attempts, err := executeWithRetry(ctx, o.retry, retryRemote, func() (*publisher.Result, error) {
		return o.publisher.Publish(ctx, journey.ClientID, tp, opts)
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to publish touchpoint",
			"journey_id", journey.ID, "touchpoint_id", tp.ID, "attempts", attempts, "error", err)

		return models.SyncItemResult{
			JourneyID:    journey.ID,
			TouchpointID: tp.ID,
			Outcome:      models.SyncOutcomeFailed,
			Attempts:     attempts,
			Error:        err.Error(),
		}, err
	}

	outcome := models.SyncOutcomeSynced
	itemAction := string(result.Action)

	if result.Action == publisher.ActionSkipped {
		outcome = models.SyncOutcomeSkipped
		itemAction = "none"
	} else if !opts.DryRun {
		o.publishEvent(ctx, tp.ID, events.TouchpointPublished{
			BaseEvent:        o.baseEvent(events.TouchpointPublishedEvent),
			JourneyID:        journey.ID,
			TouchpointID:     tp.ID,
			RemoteTemplateID: result.RemoteTemplateID,
			Action:           itemAction,
		})
	}

	return models.SyncItemResult{
		JourneyID:        journey.ID,
		TouchpointID:     tp.ID,
		Outcome:          outcome,
		Action:           itemAction,
		RemoteTemplateID: result.RemoteTemplateID,
		Attempts:         attempts,
	}, nil
}

// adoptRemote accepts the remote copy as current: the ledger is moved to the
// remote fingerprint so the drift stops reporting, and nothing is published.
func (o *Orchestrator) adoptRemote(ctx context.Context, journey *models.Journey, tp *models.Touchpoint, dryRun bool) models.SyncItemResult {
	item := models.SyncItemResult{
		JourneyID:        journey.ID,
		TouchpointID:     tp.ID,
		Outcome:          models.SyncOutcomeSynced,
		Action:           "adopted_remote",
		RemoteTemplateID: tp.RemoteTemplateID,
	}

	if dryRun {
		return item
	}

	entry, err := o.ledger.Entry(ctx, tp.ID)
	if err != nil {
		item.Outcome = models.SyncOutcomeFailed
		item.Error = err.Error()

		return item
	}

	meta, err := o.remote.TemplateMeta(ctx, journey.ClientID, tp.RemoteTemplateID)
	if err != nil {
		item.Outcome = models.SyncOutcomeFailed
		item.Error = err.Error()

		return item
	}

	fingerprint := meta.Fingerprint
	if fingerprint == "" {
		// Metadata-only platforms give us nothing better than the current
		// local hash; adopting still silences the timestamp comparison
		// because PublishedAt moves forward.
		fingerprint = entry.ContentHash
	}

	if err := o.ledger.RecordPublish(ctx, tp.ID, fingerprint, tp.RemoteTemplateID, entry.TemplateKind); err != nil {
		item.Outcome = models.SyncOutcomeFailed
		item.Error = err.Error()

		return item
	}

	o.logger.InfoContext(ctx, "Adopted remote copy for touchpoint",
		"journey_id", journey.ID, "touchpoint_id", tp.ID)

	return item
}

func (o *Orchestrator) publishEvent(ctx context.Context, key string, event eventbus.Event) {
	if o.bus == nil {
		return
	}

	if err := o.bus.Publish(ctx, key, event); err != nil {
		o.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func (o *Orchestrator) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}
