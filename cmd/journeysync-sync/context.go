package main

import (
	"context"
	"log/slog"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/marketloop/journeysync/pkg/cmd"
	"github.com/marketloop/journeysync/pkg/conflict"
	"github.com/marketloop/journeysync/pkg/eventbus"
	"github.com/marketloop/journeysync/pkg/ledger"
	"github.com/marketloop/journeysync/pkg/log"
	"github.com/marketloop/journeysync/pkg/persistence"
	"github.com/marketloop/journeysync/pkg/publisher"
	"github.com/marketloop/journeysync/pkg/remote"
	"github.com/marketloop/journeysync/pkg/sync"
)

// serviceContext bundles the wired services for one CLI invocation. Services
// are constructed explicitly here and injected; nothing is process-global.
type serviceContext struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	ledgerStore  ledger.Store
	orchestrator *sync.Orchestrator
}

func newServiceContext(ctx context.Context, command *cli.Command) (*serviceContext, error) {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("sync")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, err
	}

	ledgerStore, err := cmd.NewLedgerStore(command.String("ledger-url"), store, logger)
	if err != nil {
		_ = store.Close(ctx)

		return nil, err
	}

	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)

	remoteClient := remote.NewClient(remote.Config{
		BaseURL: command.String("remote-base-url"),
		APIKey:  command.String("remote-api-key"),
		Timeout: 30 * time.Second,
	}, logger)

	ledgerService := ledger.NewService(ledgerStore, logger)
	pub := publisher.New(remoteClient, ledgerService, store.TouchpointRepository(), logger)
	detector := conflict.NewDetector(remoteClient, ledgerService, logger)

	orchestrator := sync.NewOrchestrator(
		store,
		pub,
		detector,
		ledgerService,
		remoteClient,
		eventBus,
		sync.Config{Workers: command.Int("sync-workers")},
		logger,
	)

	return &serviceContext{
		logger:       logger,
		persistence:  store,
		eventBus:     eventBus,
		ledgerStore:  ledgerStore,
		orchestrator: orchestrator,
	}, nil
}

func (s *serviceContext) close(ctx context.Context) {
	if err := s.eventBus.Close(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
	}

	if closer, ok := s.ledgerStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.ErrorContext(ctx, "Failed to close ledger store", "error", err)
		}
	}

	if err := s.persistence.Close(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}
