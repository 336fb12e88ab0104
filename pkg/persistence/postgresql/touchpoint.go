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

// TouchpointRepository handles touchpoint-related database operations.
type TouchpointRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const touchpointColumns = `
	id
  , journey_id
  , type
  , name
  , order_index
  , content
  , config
  , remote_template_id
  , status
  , created_at
  , updated_at
`

// ListByJourney returns the journey's touchpoints ordered by order index.
func (r *TouchpointRepository) ListByJourney(ctx context.Context, journeyID string) ([]*models.Touchpoint, error) {
	query := fmt.Sprintf("SELECT %s FROM touchpoints WHERE journey_id = $1 ORDER BY order_index ASC", touchpointColumns)

	rows, err := r.db.QueryContext(ctx, query, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query touchpoints: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	touchpoints := make([]*models.Touchpoint, 0)

	for rows.Next() {
		tp, err := scanTouchpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan touchpoint: %w", err)
		}

		touchpoints = append(touchpoints, tp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating touchpoints: %w", err)
	}

	return touchpoints, nil
}

func (r *TouchpointRepository) GetByID(ctx context.Context, id string) (*models.Touchpoint, error) {
	query := fmt.Sprintf("SELECT %s FROM touchpoints WHERE id = $1", touchpointColumns)

	tp, err := scanTouchpoint(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.TouchpointError{Op: "GetByID", TouchpointID: id, Err: persistence.ErrTouchpointNotFound}
		}

		return nil, &persistence.TouchpointError{Op: "GetByID", TouchpointID: id, Err: err}
	}

	return tp, nil
}

// Save upserts the touchpoint.
func (r *TouchpointRepository) Save(ctx context.Context, touchpoint *models.Touchpoint) error {
	now := time.Now().UTC()

	if touchpoint.CreatedAt.IsZero() {
		touchpoint.CreatedAt = now
	}

	touchpoint.UpdatedAt = now

	contentJSON, err := json.Marshal(touchpoint.Content)
	if err != nil {
		return &persistence.TouchpointError{Op: "Save", TouchpointID: touchpoint.ID, Err: fmt.Errorf("failed to marshal content: %w", err)}
	}

	configJSON, err := json.Marshal(touchpoint.Config)
	if err != nil {
		return &persistence.TouchpointError{Op: "Save", TouchpointID: touchpoint.ID, Err: fmt.Errorf("failed to marshal config: %w", err)}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO touchpoints (id, journey_id, type, name, order_index, content, config,
			remote_template_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			order_index = EXCLUDED.order_index,
			content = EXCLUDED.content,
			config = EXCLUDED.config,
			remote_template_id = EXCLUDED.remote_template_id,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, touchpoint.ID, touchpoint.JourneyID, touchpoint.Type, touchpoint.Name, touchpoint.OrderIndex,
		contentJSON, configJSON, touchpoint.RemoteTemplateID, touchpoint.Status,
		touchpoint.CreatedAt, touchpoint.UpdatedAt)
	if err != nil {
		return &persistence.TouchpointError{Op: "Save", JourneyID: touchpoint.JourneyID, TouchpointID: touchpoint.ID, Err: err}
	}

	return nil
}

func (r *TouchpointRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM touchpoints WHERE id = $1", id)
	if err != nil {
		return &persistence.TouchpointError{Op: "Delete", TouchpointID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.TouchpointError{Op: "Delete", TouchpointID: id, Err: err}
	}

	if affected == 0 {
		return &persistence.TouchpointError{Op: "Delete", TouchpointID: id, Err: persistence.ErrTouchpointNotFound}
	}

	return nil
}

// Reorder rewrites order indexes in one transaction. The deferred unique
// constraint on (journey_id, order_index) is checked at commit, so the
// intermediate states inside the transaction are allowed and the whole
// permutation applies or none of it does.
func (r *TouchpointRepository) Reorder(ctx context.Context, journeyID string, orderedIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}

	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM touchpoints WHERE journey_id = $1 FOR UPDATE", journeyID)
	if err != nil {
		return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, Err: err}
	}

	existing := make(map[string]bool)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()

			return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, Err: err}
		}

		existing[id] = true
	}

	if err := rows.Close(); err != nil {
		return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, Err: err}
	}

	if len(existing) != len(orderedIDs) {
		return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, Err: persistence.ErrInvalidReorder}
	}

	for _, id := range orderedIDs {
		if !existing[id] {
			return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, TouchpointID: id, Err: persistence.ErrInvalidReorder}
		}
	}

	for index, id := range orderedIDs {
		_, err := tx.ExecContext(ctx,
			"UPDATE touchpoints SET order_index = $2, updated_at = NOW() WHERE id = $1", id, index)
		if err != nil {
			return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, TouchpointID: id, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &persistence.TouchpointError{Op: "Reorder", JourneyID: journeyID, Err: fmt.Errorf("failed to commit: %w", err)}
	}

	return nil
}

// SetRemoteTemplateID durably links the touchpoint to its remote template.
func (r *TouchpointRepository) SetRemoteTemplateID(ctx context.Context, id, remoteTemplateID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE touchpoints SET remote_template_id = $2, updated_at = NOW() WHERE id = $1", id, remoteTemplateID)
	if err != nil {
		return &persistence.TouchpointError{Op: "SetRemoteTemplateID", TouchpointID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.TouchpointError{Op: "SetRemoteTemplateID", TouchpointID: id, Err: err}
	}

	if affected == 0 {
		return &persistence.TouchpointError{Op: "SetRemoteTemplateID", TouchpointID: id, Err: persistence.ErrTouchpointNotFound}
	}

	return nil
}

func scanTouchpoint(row rowScanner) (*models.Touchpoint, error) {
	tp := &models.Touchpoint{}

	var contentJSON, configJSON []byte

	err := row.Scan(
		&tp.ID,
		&tp.JourneyID,
		&tp.Type,
		&tp.Name,
		&tp.OrderIndex,
		&contentJSON,
		&configJSON,
		&tp.RemoteTemplateID,
		&tp.Status,
		&tp.CreatedAt,
		&tp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(contentJSON) > 0 {
		if err := json.Unmarshal(contentJSON, &tp.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal content: %w", err)
		}
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &tp.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	return tp, nil
}
