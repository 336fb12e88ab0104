package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// JourneyRepository handles journey-related database operations.
type JourneyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const journeyColumns = `
	id
  , client_id
  , name
  , status
  , version
  , metadata
  , created_at
  , updated_at
  , deleted_at
`

// List returns paginated and filtered journeys.
func (r *JourneyRepository) List(ctx context.Context, opts persistence.ListJourneysOptions) (*persistence.JourneyListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	where := "WHERE deleted_at IS NULL"
	args := make([]any, 0, 4)

	if opts.ClientID != "" {
		args = append(args, opts.ClientID)
		where += fmt.Sprintf(" AND client_id = $%d", len(args))
	}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var totalCount int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM journeys "+where, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count journeys: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf("SELECT %s FROM journeys %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		journeyColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journeys: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	journeys := make([]*models.Journey, 0)

	for rows.Next() {
		journey, err := scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journey: %w", err)
		}

		journeys = append(journeys, journey)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journeys: %w", err)
	}

	return &persistence.JourneyListResult{
		Journeys:    journeys,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(journeys)) < totalCount,
	}, nil
}

func (r *JourneyRepository) GetByID(ctx context.Context, id string) (*models.Journey, error) {
	query := fmt.Sprintf("SELECT %s FROM journeys WHERE id = $1 AND deleted_at IS NULL", journeyColumns)

	journey, err := scanJourney(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewJourneyError("GetByID", id, persistence.ErrJourneyNotFound)
		}

		return nil, persistence.NewJourneyError("GetByID", id, err)
	}

	return journey, nil
}

// Create inserts the journey and its initial snapshot in one transaction.
func (r *JourneyRepository) Create(ctx context.Context, journey *models.Journey, snapshot *models.JourneyVersionSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewJourneyError("Create", journey.ID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		_ = tx.Rollback()
	}()

	metadataJSON, err := json.Marshal(journey.Metadata)
	if err != nil {
		return persistence.NewJourneyError("Create", journey.ID, fmt.Errorf("failed to marshal metadata: %w", err))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journeys (id, client_id, name, status, version, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, journey.ID, journey.ClientID, journey.Name, journey.Status, journey.Version,
		metadataJSON, journey.CreatedAt, journey.UpdatedAt)
	if err != nil {
		return persistence.NewJourneyError("Create", journey.ID, err)
	}

	if err := insertSnapshot(ctx, tx, snapshot); err != nil {
		return persistence.NewJourneyError("Create", journey.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.NewJourneyError("Create", journey.ID, fmt.Errorf("failed to commit: %w", err))
	}

	return nil
}

// Update locks the row, checks the submitted version, applies fn and writes
// the result with version incremented by one. The row lock makes the check
// and increment a single atomic operation; the loser of a race gets the
// winner's row back inside the conflict error.
func (r *JourneyRepository) Update(ctx context.Context, id string, expectedVersion *int64, fn func(*models.Journey) error) (*models.Journey, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence.NewJourneyError("Update", id, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		_ = tx.Rollback()
	}()

	journey, err := lockJourney(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if expectedVersion != nil && *expectedVersion != journey.Version {
		return nil, &persistence.VersionConflictError{
			JourneyID:        id,
			SubmittedVersion: *expectedVersion,
			CurrentVersion:   journey.Version,
			Current:          journey,
		}
	}

	if err := fn(journey); err != nil {
		return nil, err
	}

	journey.Version++
	journey.UpdatedAt = time.Now().UTC()

	if err := updateJourneyRow(ctx, tx, journey); err != nil {
		return nil, persistence.NewJourneyError("Update", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence.NewJourneyError("Update", id, fmt.Errorf("failed to commit: %w", err))
	}

	return journey, nil
}

// AdvanceVersionWithSnapshot inserts the snapshot and moves the journey
// version forward to match, in one transaction.
func (r *JourneyRepository) AdvanceVersionWithSnapshot(ctx context.Context, journeyID string, snapshot *models.JourneyVersionSnapshot) (*models.Journey, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence.NewJourneyError("AdvanceVersionWithSnapshot", journeyID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		_ = tx.Rollback()
	}()

	journey, err := lockJourney(ctx, tx, journeyID)
	if err != nil {
		return nil, err
	}

	if snapshot.Version != journey.Version+1 {
		return nil, persistence.NewJourneyError("AdvanceVersionWithSnapshot", journeyID,
			fmt.Errorf("snapshot version %d does not follow current version %d: %w",
				snapshot.Version, journey.Version, persistence.ErrVersionConflict))
	}

	if err := insertSnapshot(ctx, tx, snapshot); err != nil {
		return nil, persistence.NewJourneyError("AdvanceVersionWithSnapshot", journeyID, err)
	}

	journey.Version = snapshot.Version
	journey.UpdatedAt = time.Now().UTC()

	if err := updateJourneyRow(ctx, tx, journey); err != nil {
		return nil, persistence.NewJourneyError("AdvanceVersionWithSnapshot", journeyID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence.NewJourneyError("AdvanceVersionWithSnapshot", journeyID, fmt.Errorf("failed to commit: %w", err))
	}

	return journey, nil
}

// Delete soft deletes the journey and hard deletes the touchpoints it owns.
// Snapshots are immutable history and stay; ledger entries are weak
// references and stay.
func (r *JourneyRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewJourneyError("Delete", id, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		"UPDATE journeys SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return persistence.NewJourneyError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewJourneyError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewJourneyError("Delete", id, persistence.ErrJourneyNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM touchpoints WHERE journey_id = $1", id); err != nil {
		return persistence.NewJourneyError("Delete", id, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.NewJourneyError("Delete", id, fmt.Errorf("failed to commit: %w", err))
	}

	return nil
}

func lockJourney(ctx context.Context, tx *sql.Tx, id string) (*models.Journey, error) {
	query := fmt.Sprintf("SELECT %s FROM journeys WHERE id = $1 AND deleted_at IS NULL FOR UPDATE", journeyColumns)

	journey, err := scanJourney(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewJourneyError("Update", id, persistence.ErrJourneyNotFound)
		}

		return nil, persistence.NewJourneyError("Update", id, err)
	}

	return journey, nil
}

func updateJourneyRow(ctx context.Context, tx *sql.Tx, journey *models.Journey) error {
	metadataJSON, err := json.Marshal(journey.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE journeys
		SET name = $2, status = $3, version = $4, metadata = $5, updated_at = $6
		WHERE id = $1
	`, journey.ID, journey.Name, journey.Status, journey.Version, metadataJSON, journey.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update journey row: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJourney(row rowScanner) (*models.Journey, error) {
	journey := &models.Journey{}

	var metadataJSON []byte

	err := row.Scan(
		&journey.ID,
		&journey.ClientID,
		&journey.Name,
		&journey.Status,
		&journey.Version,
		&metadataJSON,
		&journey.CreatedAt,
		&journey.UpdatedAt,
		&journey.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &journey.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return journey, nil
}
