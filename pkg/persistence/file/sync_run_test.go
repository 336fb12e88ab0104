package file

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

func TestSyncRunRepository_SaveAndList(t *testing.T) {
	p := NewPersistence(t.TempDir())

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		run := &models.SyncRun{
			ID:        id,
			Status:    models.SyncRunStatusCompleted,
			StartedAt: time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, p.SyncRunRepository().Save(t.Context(), run))
	}

	runs, err := p.SyncRunRepository().List(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Most recent first.
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	_, err = p.SyncRunRepository().GetByID(t.Context(), "run-9")
	assert.True(t, errors.Is(err, persistence.ErrSyncRunNotFound))
}

func TestConflictRepository_ListOpenExcludesResolved(t *testing.T) {
	p := NewPersistence(t.TempDir())

	open := &models.ConflictRecord{
		ID:         "c-1",
		JourneyID:  "j-1",
		Kind:       "external_modification",
		Status:     models.ConflictStatusOpen,
		DetectedAt: time.Now().UTC(),
	}
	require.NoError(t, p.ConflictRepository().Save(t.Context(), open))

	now := time.Now().UTC()
	resolved := &models.ConflictRecord{
		ID:         "c-2",
		JourneyID:  "j-1",
		Kind:       "version_mismatch",
		Status:     models.ConflictStatusResolved,
		Resolution: "skip",
		DetectedAt: now,
		ResolvedAt: &now,
	}
	require.NoError(t, p.ConflictRepository().Save(t.Context(), resolved))

	records, err := p.ConflictRepository().ListOpen(t.Context())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c-1", records[0].ID)
}
