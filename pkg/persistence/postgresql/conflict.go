package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// ConflictRepository stores conflict records.
type ConflictRepository struct {
	db *sql.DB
}

func (r *ConflictRepository) Save(ctx context.Context, record *models.ConflictRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conflicts (id, journey_id, touchpoint_id, kind, local_value, remote_value,
			detail, status, resolution, detected_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			resolution = EXCLUDED.resolution,
			resolved_at = EXCLUDED.resolved_at
	`, record.ID, record.JourneyID, record.TouchpointID, record.Kind, record.LocalValue,
		record.RemoteValue, record.Detail, record.Status, record.Resolution,
		record.DetectedAt, record.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to save conflict record: %w", err)
	}

	return nil
}

func (r *ConflictRepository) GetByID(ctx context.Context, id string) (*models.ConflictRecord, error) {
	record, err := scanConflict(r.db.QueryRowContext(ctx, `
		SELECT id, journey_id, touchpoint_id, kind, local_value, remote_value,
			detail, status, resolution, detected_at, resolved_at
		FROM conflicts
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrConflictNotFound
		}

		return nil, fmt.Errorf("failed to query conflict record: %w", err)
	}

	return record, nil
}

func (r *ConflictRepository) ListOpen(ctx context.Context) ([]*models.ConflictRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, journey_id, touchpoint_id, kind, local_value, remote_value,
			detail, status, resolution, detected_at, resolved_at
		FROM conflicts
		WHERE status = $1
		ORDER BY detected_at ASC
	`, models.ConflictStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open conflicts: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	records := make([]*models.ConflictRecord, 0)

	for rows.Next() {
		record, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conflict record: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conflicts: %w", err)
	}

	return records, nil
}

func scanConflict(row rowScanner) (*models.ConflictRecord, error) {
	record := &models.ConflictRecord{}

	err := row.Scan(
		&record.ID,
		&record.JourneyID,
		&record.TouchpointID,
		&record.Kind,
		&record.LocalValue,
		&record.RemoteValue,
		&record.Detail,
		&record.Status,
		&record.Resolution,
		&record.DetectedAt,
		&record.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	return record, nil
}
