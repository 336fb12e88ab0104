package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/marketloop/journeysync/pkg/cmd"
	"github.com/marketloop/journeysync/pkg/ledger"
	"github.com/marketloop/journeysync/pkg/log"
	"github.com/marketloop/journeysync/pkg/remote"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "journeysync-api",
		Usage:                 "Edit journeys and control synchronization runs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "ledger-url",
				Usage:   "Publish state ledger URL (redis://... for a shared ledger, empty to use the database)",
				Sources: cli.EnvVars("LEDGER_URL"),
			},
			&cli.StringFlag{
				Name:     "remote-base-url",
				Usage:    "Base URL of the workflow platform API",
				Required: true,
				Sources:  cli.EnvVars("REMOTE_BASE_URL"),
			},
			&cli.StringFlag{
				Name:     "remote-api-key",
				Usage:    "API key for the workflow platform",
				Required: true,
				Sources:  cli.EnvVars("REMOTE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "sync-workers",
				Usage:   "Concurrent publish workers per journey",
				Value:   4,
				Sources: cli.EnvVars("SYNC_WORKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing JourneySync API")

			persistence := cmd.MustNewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			ledgerStore, err := cmd.NewLedgerStore(command.String("ledger-url"), persistence, logger)
			if err != nil {
				return err
			}

			defer closeLedgerStore(ledgerStore, logger)

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			remoteClient := remote.NewClient(remote.Config{
				BaseURL: command.String("remote-base-url"),
				APIKey:  command.String("remote-api-key"),
				Timeout: 30 * time.Second,
			}, logger)

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				remoteClient,
				ledgerStore,
				command.Int("sync-workers"),
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func closeLedgerStore(store ledger.Store, logger *slog.Logger) {
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close ledger store", "error", err)
		}
	}
}
