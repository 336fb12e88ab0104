package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marketloop/journeysync/pkg/persistence"
	"github.com/marketloop/journeysync/pkg/persistence/file"
	"github.com/marketloop/journeysync/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend by URL scheme: postgres:// (or
// postgresql://) opens the SQL store, anything else is treated as a
// directory path for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}

// MustNewPersistence panics on backend setup failure; for binaries that
// cannot start without storage.
func MustNewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	store, err := NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		panic(fmt.Errorf("failed to initialize persistence: %w", err))
	}

	return store
}
