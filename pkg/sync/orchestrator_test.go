package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketloop/journeysync/pkg/conflict"
	"github.com/marketloop/journeysync/pkg/ledger"
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
	"github.com/marketloop/journeysync/pkg/persistence/file"
	"github.com/marketloop/journeysync/pkg/publisher"
	"github.com/marketloop/journeysync/pkg/remote"
)

// fakePlatform emulates the remote template store in memory. It implements
// remote.API so one instance serves the publisher and the detector.
type fakePlatform struct {
	mu stdsync.Mutex

	nextID int
	metas  map[string]*remote.TemplateMeta

	createCalls int
	updateCalls int

	// rateLimitCreates makes the next N create calls fail with 429.
	rateLimitCreates int

	// err, when set, fails every template call.
	err error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{metas: make(map[string]*remote.TemplateMeta)}
}

func (f *fakePlatform) create() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	f.createCalls++

	if f.rateLimitCreates > 0 {
		f.rateLimitCreates--

		return "", &remote.APIError{StatusCode: 429, Err: remote.ErrRateLimited}
	}

	f.nextID++
	id := fmt.Sprintf("tmpl-%d", f.nextID)
	f.metas[id] = &remote.TemplateMeta{ID: id}

	return id, nil
}

func (f *fakePlatform) update(templateID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.updateCalls++

	if _, ok := f.metas[templateID]; !ok {
		f.metas[templateID] = &remote.TemplateMeta{ID: templateID}
	}

	return nil
}

func (f *fakePlatform) CreateEmailTemplate(context.Context, string, remote.EmailTemplate) (string, error) {
	return f.create()
}

func (f *fakePlatform) UpdateEmailTemplate(_ context.Context, _, templateID string, _ remote.EmailTemplate) error {
	return f.update(templateID)
}

func (f *fakePlatform) CreateSMSTemplate(context.Context, string, remote.SMSTemplate) (string, error) {
	return f.create()
}

func (f *fakePlatform) UpdateSMSTemplate(_ context.Context, _, templateID string, _ remote.SMSTemplate) error {
	return f.update(templateID)
}

func (f *fakePlatform) TemplateMeta(_ context.Context, _, templateID string) (*remote.TemplateMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	meta, ok := f.metas[templateID]
	if !ok {
		return nil, &remote.APIError{StatusCode: 404, Err: remote.ErrTemplateNotFound}
	}

	copied := *meta

	return &copied, nil
}

func (f *fakePlatform) WorkflowStepCount(context.Context, string, string) (int, error) {
	return 0, nil
}

func (f *fakePlatform) setFingerprint(templateID, fingerprint string, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.metas[templateID].Fingerprint = fingerprint
	f.metas[templateID].UpdatedAt = updatedAt
}

type syncEnv struct {
	store    *file.Persistence
	platform *fakePlatform
	ledger   *ledger.Service
	orch     *Orchestrator
}

func newSyncEnv(t *testing.T) *syncEnv {
	t.Helper()

	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())
	platform := newFakePlatform()
	ledgerService := ledger.NewService(store.LedgerRepository(), logger)
	pub := publisher.New(platform, ledgerService, store.TouchpointRepository(), logger)
	detector := conflict.NewDetector(platform, ledgerService, logger)

	orch := NewOrchestrator(store, pub, detector, ledgerService, platform, nil, Config{
		Workers: 2,
		Retry: RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
		},
	}, logger)

	return &syncEnv{store: store, platform: platform, ledger: ledgerService, orch: orch}
}

func (e *syncEnv) seedJourney(t *testing.T, status models.JourneyStatus) *models.Journey {
	t.Helper()

	journey := &models.Journey{
		ID:       uuid.NewString(),
		ClientID: "client-1",
		Name:     "Onboarding Sequence",
		Status:   status,
		Version:  1,
	}
	snapshot := &models.JourneyVersionSnapshot{
		ID:        uuid.NewString(),
		JourneyID: journey.ID,
		Version:   1,
		ChangeLog: "initial version",
	}

	require.NoError(t, e.store.JourneyRepository().Create(t.Context(), journey, snapshot))

	return journey
}

func (e *syncEnv) seedTouchpoint(t *testing.T, journey *models.Journey, tpType models.TouchpointType, name string, order int) *models.Touchpoint {
	t.Helper()

	tp := &models.Touchpoint{
		ID:         uuid.NewString(),
		JourneyID:  journey.ID,
		Type:       tpType,
		Name:       name,
		OrderIndex: order,
		Content:    map[string]any{"subject": "Hi", "body": "Welcome aboard"},
	}

	require.NoError(t, e.store.TouchpointRepository().Save(t.Context(), tp))

	return tp
}

func TestOrchestrator_RunPublishesSyncableJourneys(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)
	env.seedTouchpoint(t, journey, models.TouchpointTypeSMS, "Reminder SMS", 1)
	env.seedTouchpoint(t, journey, models.TouchpointTypeWait, "Wait 2 days", 2)

	run, err := env.orch.Run(t.Context(), RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Summary.Journeys)
	assert.Equal(t, 2, run.Summary.Synced)
	assert.Equal(t, 1, run.Summary.Skipped)
	assert.Zero(t, run.Summary.Failed)
	require.NotNil(t, run.FinishedAt)

	// The report is durable.
	stored, err := env.store.SyncRunRepository().GetByID(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunStatusCompleted, stored.Status)

	// Both publishable touchpoints got remote template ids.
	touchpoints, err := env.store.TouchpointRepository().ListByJourney(t.Context(), journey.ID)
	require.NoError(t, err)

	for _, tp := range touchpoints {
		if tp.Publishable() {
			assert.NotEmpty(t, tp.RemoteTemplateID)
		} else {
			assert.Empty(t, tp.RemoteTemplateID)
		}
	}
}

func TestOrchestrator_SecondRunSkipsUnchangedContent(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	_, err := env.orch.Run(t.Context(), RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, env.platform.createCalls)

	run, err := env.orch.Run(t.Context(), RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Skipped)
	assert.Zero(t, run.Summary.Synced)
	assert.Equal(t, 1, env.platform.createCalls)
	assert.Zero(t, env.platform.updateCalls)
}

func TestOrchestrator_NonSyncableJourneysAreExcluded(t *testing.T) {
	env := newSyncEnv(t)
	env.seedJourney(t, models.JourneyStatusDraft)
	env.seedJourney(t, models.JourneyStatusArchived)

	run, err := env.orch.Run(t.Context(), RunRequest{})
	require.NoError(t, err)

	assert.Zero(t, run.Summary.Journeys)
	assert.Empty(t, run.Items)
}

func TestOrchestrator_ScopeByJourneyID(t *testing.T) {
	env := newSyncEnv(t)
	target := env.seedJourney(t, models.JourneyStatusApproved)
	other := env.seedJourney(t, models.JourneyStatusApproved)
	env.seedTouchpoint(t, target, models.TouchpointTypeEmail, "Welcome Email", 0)
	env.seedTouchpoint(t, other, models.TouchpointTypeEmail, "Other Email", 0)

	run, err := env.orch.Run(t.Context(), RunRequest{Scope: models.SyncScope{JourneyID: target.ID}})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Journeys)
	require.Len(t, run.Items, 1)
	assert.Equal(t, target.ID, run.Items[0].JourneyID)
}

func TestOrchestrator_DryRunTouchesNothing(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	tp := env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	run, err := env.orch.Run(t.Context(), RunRequest{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Synced)
	require.Len(t, run.Items, 1)
	assert.Equal(t, "created", run.Items[0].Action)

	assert.Zero(t, env.platform.createCalls)

	_, err = env.ledger.Entry(t.Context(), tp.ID)
	require.Error(t, err)

	stored, err := env.store.TouchpointRepository().GetByID(t.Context(), tp.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RemoteTemplateID)
}

func TestOrchestrator_RetriesRateLimitedPublish(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	env.platform.rateLimitCreates = 2

	run, err := env.orch.Run(t.Context(), RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Synced)
	require.Len(t, run.Items, 1)
	assert.Equal(t, 3, run.Items[0].Attempts)
	assert.Equal(t, 3, env.platform.createCalls)
}

func TestOrchestrator_ExhaustedRetriesFailTheItemNotTheRun(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	env.platform.rateLimitCreates = 10

	run, err := env.orch.Run(t.Context(), RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Summary.Failed)
	require.Len(t, run.Items, 1)
	assert.Equal(t, models.SyncOutcomeFailed, run.Items[0].Outcome)
	assert.Equal(t, 3, run.Items[0].Attempts)
}

func TestOrchestrator_AuthFailureAbortsTheRun(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	env.platform.err = &remote.APIError{StatusCode: 401, Err: remote.ErrUnauthorized}

	run, err := env.orch.Run(t.Context(), RunRequest{})
	require.Error(t, err)
	assert.True(t, remote.IsFatal(err))

	require.NotNil(t, run)
	assert.Equal(t, models.SyncRunStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	stored, getErr := env.store.SyncRunRepository().GetByID(t.Context(), run.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.SyncRunStatusFailed, stored.Status)
}

func TestOrchestrator_CancelledContextStopsBetweenJourneys(t *testing.T) {
	env := newSyncEnv(t)
	env.seedJourney(t, models.JourneyStatusApproved)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	run, err := env.orch.Run(ctx, RunRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunCancelled)

	require.NotNil(t, run)
	assert.Equal(t, models.SyncRunStatusFailed, run.Status)
	assert.Zero(t, run.Summary.Journeys)
}

// driftTouchpoint publishes the journey once, then mutates the remote copy so
// the next detection sees an external modification.
func driftTouchpoint(t *testing.T, env *syncEnv, tp *models.Touchpoint, remoteUpdatedAt time.Time) *models.Touchpoint {
	t.Helper()

	_, err := env.orch.Run(t.Context(), RunRequest{})
	require.NoError(t, err)

	stored, err := env.store.TouchpointRepository().GetByID(t.Context(), tp.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.RemoteTemplateID)

	env.platform.setFingerprint(stored.RemoteTemplateID, "remote-drift", remoteUpdatedAt)

	return stored
}

func TestOrchestrator_ConflictsFailClosedWithoutAPolicy(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	tp := env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	driftTouchpoint(t, env, tp, time.Now().UTC())
	updatesBefore := env.platform.updateCalls

	run, err := env.orch.Run(t.Context(), RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Summary.Conflicted)
	assert.Equal(t, updatesBefore, env.platform.updateCalls)

	open, err := env.store.ConflictRepository().ListOpen(t.Context())
	require.NoError(t, err)
	require.Len(t, open, 1)

	assert.Equal(t, journey.ID, open[0].JourneyID)
	assert.Equal(t, tp.ID, open[0].TouchpointID)
	assert.Equal(t, string(conflict.KindExternalModification), open[0].Kind)
	assert.Equal(t, models.ConflictStatusOpen, open[0].Status)
}

func TestOrchestrator_DryRunRecordsNoConflicts(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	tp := env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	driftTouchpoint(t, env, tp, time.Now().UTC())

	run, err := env.orch.Run(t.Context(), RunRequest{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Summary.Conflicted)

	open, err := env.store.ConflictRepository().ListOpen(t.Context())
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestOrchestrator_SkipResolutionLeavesBothSides(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	tp := env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	driftTouchpoint(t, env, tp, time.Now().UTC())
	updatesBefore := env.platform.updateCalls

	run, err := env.orch.Run(t.Context(), RunRequest{Resolution: conflict.ResolutionSkip})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Skipped)
	assert.Zero(t, run.Summary.Conflicted)
	assert.Equal(t, updatesBefore, env.platform.updateCalls)

	open, err := env.store.ConflictRepository().ListOpen(t.Context())
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestOrchestrator_OverwriteResolutionRepublishesLocalContent(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	tp := env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	driftTouchpoint(t, env, tp, time.Now().UTC())
	updatesBefore := env.platform.updateCalls

	run, err := env.orch.Run(t.Context(), RunRequest{Resolution: conflict.ResolutionOverwrite})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Synced)
	assert.Equal(t, updatesBefore+1, env.platform.updateCalls)
}

func TestOrchestrator_ForceRunPublishesOverConflicts(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	tp := env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	driftTouchpoint(t, env, tp, time.Now().UTC())
	updatesBefore := env.platform.updateCalls

	run, err := env.orch.Run(t.Context(), RunRequest{Force: true})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Synced)
	assert.Equal(t, updatesBefore+1, env.platform.updateCalls)

	open, err := env.store.ConflictRepository().ListOpen(t.Context())
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestOrchestrator_MergeAdoptsNewerRemoteCopy(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	tp := env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	driftTouchpoint(t, env, tp, time.Now().UTC().Add(time.Hour))
	updatesBefore := env.platform.updateCalls

	run, err := env.orch.Run(t.Context(), RunRequest{Resolution: conflict.ResolutionMerge})
	require.NoError(t, err)

	require.Len(t, run.Items, 1)
	assert.Equal(t, "adopted_remote", run.Items[0].Action)
	assert.Equal(t, models.SyncOutcomeSynced, run.Items[0].Outcome)
	assert.Equal(t, updatesBefore, env.platform.updateCalls)

	// The ledger now carries the remote fingerprint, so the drift is settled.
	entry, err := env.ledger.Entry(t.Context(), tp.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote-drift", entry.ContentHash)
}

func TestOrchestrator_MergeKeepsNewerLocalCopy(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	tp := env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	driftTouchpoint(t, env, tp, time.Now().UTC().Add(-time.Hour))
	updatesBefore := env.platform.updateCalls

	run, err := env.orch.Run(t.Context(), RunRequest{Resolution: conflict.ResolutionMerge})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Synced)
	assert.Equal(t, updatesBefore+1, env.platform.updateCalls)
}

func TestOrchestrator_MergeWithoutRemoteTimestampStaysManual(t *testing.T) {
	env := newSyncEnv(t)
	journey := env.seedJourney(t, models.JourneyStatusApproved)
	tp := env.seedTouchpoint(t, journey, models.TouchpointTypeEmail, "Welcome Email", 0)

	driftTouchpoint(t, env, tp, time.Time{})

	run, err := env.orch.Run(t.Context(), RunRequest{Resolution: conflict.ResolutionMerge})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Conflicted)

	open, openErr := env.store.ConflictRepository().ListOpen(t.Context())
	require.NoError(t, openErr)
	assert.Len(t, open, 1)
}

// statusRecordingStore wraps a Persistence and records every sync run status
// it is asked to persist, in order.
type statusRecordingStore struct {
	persistence.Persistence

	runs *statusRecordingRunRepo
}

type statusRecordingRunRepo struct {
	persistence.SyncRunRepository

	mu       stdsync.Mutex
	statuses []models.SyncRunStatus
}

func (s *statusRecordingStore) SyncRunRepository() persistence.SyncRunRepository {
	return s.runs
}

func (r *statusRecordingRunRepo) Save(ctx context.Context, run *models.SyncRun) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, run.Status)
	r.mu.Unlock()

	return r.SyncRunRepository.Save(ctx, run)
}

func TestOrchestrator_RunIsPersistedPendingBeforeItRuns(t *testing.T) {
	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())
	recorder := &statusRecordingStore{
		Persistence: store,
		runs:        &statusRecordingRunRepo{SyncRunRepository: store.SyncRunRepository()},
	}
	platform := newFakePlatform()
	ledgerService := ledger.NewService(store.LedgerRepository(), logger)
	pub := publisher.New(platform, ledgerService, store.TouchpointRepository(), logger)
	detector := conflict.NewDetector(platform, ledgerService, logger)

	orch := NewOrchestrator(recorder, pub, detector, ledgerService, platform, nil, Config{
		Workers: 1,
		Retry:   RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}, logger)

	run, err := orch.Run(t.Context(), RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunStatusCompleted, run.Status)

	assert.Equal(t, []models.SyncRunStatus{
		models.SyncRunStatusPending,
		models.SyncRunStatusRunning,
		models.SyncRunStatusCompleted,
	}, recorder.runs.statuses)
}

// timeoutError mimics a transport timeout the way net/http surfaces one.
type timeoutError struct{}

func (timeoutError) Error() string { return "context deadline exceeded" }
func (timeoutError) Timeout() bool { return true }

func TestRetryRemote(t *testing.T) {
	assert.True(t, retryRemote(&remote.APIError{StatusCode: 429, Err: remote.ErrRateLimited}))

	// Client-side timeouts arrive wrapped by the HTTP client and must stay
	// retryable through the wrapping.
	assert.True(t, retryRemote(fmt.Errorf("request to /templates failed: %w",
		&url.Error{Op: "Post", URL: "https://platform.test/templates", Err: timeoutError{}})))

	// Other remote errors are reported as-is, server-side failures included.
	assert.False(t, retryRemote(&remote.APIError{StatusCode: 500}))
	assert.False(t, retryRemote(&remote.APIError{StatusCode: 503}))
	assert.False(t, retryRemote(&remote.APIError{StatusCode: 400}))
	assert.False(t, retryRemote(&remote.APIError{StatusCode: 401, Err: remote.ErrUnauthorized}))
	assert.False(t, retryRemote(errors.New("plain failure")))
}
