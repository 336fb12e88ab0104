// Package postgresql provides PostgreSQL persistence for journeys,
// touchpoints and sync state.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/marketloop/journeysync/pkg/persistence"
	"github.com/marketloop/journeysync/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	journeyRepo    *JourneyRepository
	touchpointRepo *TouchpointRepository
	snapshotRepo   *SnapshotRepository
	ledgerRepo     *LedgerRepository
	syncRunRepo    *SyncRunRepository
	conflictRepo   *ConflictRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs schema
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	postgres := &Persistence{
		db:     database,
		logger: logger,
	}
	postgres.journeyRepo = &JourneyRepository{db: database, logger: logger}
	postgres.touchpointRepo = &TouchpointRepository{db: database, logger: logger}
	postgres.snapshotRepo = &SnapshotRepository{db: database, logger: logger}
	postgres.ledgerRepo = &LedgerRepository{db: database}
	postgres.syncRunRepo = &SyncRunRepository{db: database}
	postgres.conflictRepo = &ConflictRepository{db: database}

	return postgres, nil
}

func (p *Persistence) JourneyRepository() persistence.JourneyRepository {
	return p.journeyRepo
}

func (p *Persistence) TouchpointRepository() persistence.TouchpointRepository {
	return p.touchpointRepo
}

func (p *Persistence) SnapshotRepository() persistence.SnapshotRepository {
	return p.snapshotRepo
}

func (p *Persistence) LedgerRepository() persistence.LedgerRepository {
	return p.ledgerRepo
}

func (p *Persistence) SyncRunRepository() persistence.SyncRunRepository {
	return p.syncRunRepo
}

func (p *Persistence) ConflictRepository() persistence.ConflictRepository {
	return p.conflictRepo
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
