package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// SnapshotRepository reads immutable journey version snapshots. Writes happen
// inside journey repository transactions via insertSnapshot.
type SnapshotRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const snapshotColumns = `
	id
  , journey_id
  , version
  , snapshot
  , change_log
  , created_by
  , created_at
`

// ListByJourney returns all snapshots for a journey in ascending version order.
func (r *SnapshotRepository) ListByJourney(ctx context.Context, journeyID string) ([]*models.JourneyVersionSnapshot, error) {
	query := fmt.Sprintf("SELECT %s FROM journey_version_snapshots WHERE journey_id = $1 ORDER BY version ASC", snapshotColumns)

	rows, err := r.db.QueryContext(ctx, query, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	snapshots := make([]*models.JourneyVersionSnapshot, 0)

	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

func (r *SnapshotRepository) GetByVersion(ctx context.Context, journeyID string, version int64) (*models.JourneyVersionSnapshot, error) {
	query := fmt.Sprintf("SELECT %s FROM journey_version_snapshots WHERE journey_id = $1 AND version = $2", snapshotColumns)

	snapshot, err := scanSnapshot(r.db.QueryRowContext(ctx, query, journeyID, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewJourneyError("GetSnapshot", journeyID, persistence.ErrSnapshotNotFound)
		}

		return nil, persistence.NewJourneyError("GetSnapshot", journeyID, err)
	}

	return snapshot, nil
}

// insertSnapshot writes one snapshot row inside an existing transaction.
func insertSnapshot(ctx context.Context, tx *sql.Tx, snapshot *models.JourneyVersionSnapshot) error {
	payloadJSON, err := json.Marshal(snapshot.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot payload: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journey_version_snapshots (id, journey_id, version, snapshot, change_log, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, snapshot.ID, snapshot.JourneyID, snapshot.Version, payloadJSON,
		snapshot.ChangeLog, snapshot.CreatedBy, snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

func scanSnapshot(row rowScanner) (*models.JourneyVersionSnapshot, error) {
	snapshot := &models.JourneyVersionSnapshot{}

	var payloadJSON []byte

	err := row.Scan(
		&snapshot.ID,
		&snapshot.JourneyID,
		&snapshot.Version,
		&payloadJSON,
		&snapshot.ChangeLog,
		&snapshot.CreatedBy,
		&snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &snapshot.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot payload: %w", err)
		}
	}

	return snapshot, nil
}
