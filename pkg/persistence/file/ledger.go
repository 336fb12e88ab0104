package file

import (
	"context"
	"os"
	"time"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// LedgerRepository stores publish state entries, one file per touchpoint id.
type LedgerRepository struct {
	p *Persistence
}

func (lr *LedgerRepository) Get(_ context.Context, touchpointID string) (*models.PublishStateEntry, error) {
	lr.p.mu.RLock()
	defer lr.p.mu.RUnlock()

	entry := &models.PublishStateEntry{}

	if err := lr.p.readJSON(ledgerDir, touchpointID, entry); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrLedgerEntryNotFound
		}

		return nil, err
	}

	return entry, nil
}

func (lr *LedgerRepository) Upsert(_ context.Context, entry *models.PublishStateEntry) error {
	lr.p.mu.Lock()
	defer lr.p.mu.Unlock()

	if entry.PublishedAt.IsZero() {
		entry.PublishedAt = time.Now().UTC()
	}

	return lr.p.writeJSON(ledgerDir, entry.TouchpointID, entry)
}
