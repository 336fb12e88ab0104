package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// SyncRunRepository stores sync run reports.
type SyncRunRepository struct {
	db *sql.DB
}

func (r *SyncRunRepository) Save(ctx context.Context, run *models.SyncRun) error {
	scopeJSON, err := json.Marshal(run.Scope)
	if err != nil {
		return fmt.Errorf("failed to marshal scope: %w", err)
	}

	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	itemsJSON, err := json.Marshal(run.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, scope, dry_run, force, status, summary, items, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			summary = EXCLUDED.summary,
			items = EXCLUDED.items,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
	`, run.ID, scopeJSON, run.DryRun, run.Force, run.Status, summaryJSON, itemsJSON,
		run.Error, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save sync run: %w", err)
	}

	return nil
}

func (r *SyncRunRepository) GetByID(ctx context.Context, id string) (*models.SyncRun, error) {
	run, err := scanSyncRun(r.db.QueryRowContext(ctx, `
		SELECT id, scope, dry_run, force, status, summary, items, error, started_at, finished_at
		FROM sync_runs
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSyncRunNotFound
		}

		return nil, fmt.Errorf("failed to query sync run: %w", err)
	}

	return run, nil
}

func (r *SyncRunRepository) List(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scope, dry_run, force, status, summary, items, error, started_at, finished_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	runs := make([]*models.SyncRun, 0)

	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}

func scanSyncRun(row rowScanner) (*models.SyncRun, error) {
	run := &models.SyncRun{}

	var scopeJSON, summaryJSON, itemsJSON []byte

	err := row.Scan(
		&run.ID,
		&scopeJSON,
		&run.DryRun,
		&run.Force,
		&run.Status,
		&summaryJSON,
		&itemsJSON,
		&run.Error,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(scopeJSON) > 0 {
		if err := json.Unmarshal(scopeJSON, &run.Scope); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scope: %w", err)
		}
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
	}

	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &run.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}

	return run, nil
}
