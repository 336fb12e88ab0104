// Package main provides the JourneySync batch synchronization CLI.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/marketloop/journeysync/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "journeysync-sync",
		Usage:                 "Synchronize journeys to the workflow platform",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunCommand(),
			DaemonCommand(),
			ConflictsCommand(),
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("sync").Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand that needs a full service
// context.
func commonFlags() []cli.Flag {
	return []cli.Flag{
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
	}
}
