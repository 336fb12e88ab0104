// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/marketloop/journeysync/pkg/ledger"
	ledgerredis "github.com/marketloop/journeysync/pkg/ledger/redis"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// NewLedgerStore selects the publish state ledger's backing store: a
// redis:// URL opens the shared redis store, empty falls back to the
// persistence layer's ledger repository.
func NewLedgerStore(ledgerURL string, store persistence.Persistence, logger *slog.Logger) (ledger.Store, error) {
	if strings.HasPrefix(ledgerURL, "redis://") || strings.HasPrefix(ledgerURL, "rediss://") {
		redisStore, err := ledgerredis.NewStore(ledgerURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis ledger store: %w", err)
		}

		logger.Info("Using redis publish state ledger")

		return redisStore, nil
	}

	return store.LedgerRepository(), nil
}
