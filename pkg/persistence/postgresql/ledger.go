package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// LedgerRepository stores publish state entries. The upsert is a single
// statement, so two workers racing on the same touchpoint id serialize at the
// row level.
type LedgerRepository struct {
	db *sql.DB
}

func (r *LedgerRepository) Get(ctx context.Context, touchpointID string) (*models.PublishStateEntry, error) {
	entry := &models.PublishStateEntry{}

	err := r.db.QueryRowContext(ctx, `
		SELECT touchpoint_id, content_hash, remote_template_id, template_kind, published_at
		FROM publish_state
		WHERE touchpoint_id = $1
	`, touchpointID).Scan(
		&entry.TouchpointID,
		&entry.ContentHash,
		&entry.RemoteTemplateID,
		&entry.TemplateKind,
		&entry.PublishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrLedgerEntryNotFound
		}

		return nil, fmt.Errorf("failed to query publish state: %w", err)
	}

	return entry, nil
}

func (r *LedgerRepository) Upsert(ctx context.Context, entry *models.PublishStateEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO publish_state (touchpoint_id, content_hash, remote_template_id, template_kind, published_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (touchpoint_id) DO UPDATE SET
			content_hash = EXCLUDED.content_hash,
			remote_template_id = EXCLUDED.remote_template_id,
			template_kind = EXCLUDED.template_kind,
			published_at = EXCLUDED.published_at
	`, entry.TouchpointID, entry.ContentHash, entry.RemoteTemplateID, entry.TemplateKind, entry.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert publish state: %w", err)
	}

	return nil
}
