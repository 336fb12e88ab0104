package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/marketloop/journeysync/pkg/conflict"
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/sync"
)

func RunCommand() *cli.Command {
	flags := append(commonFlags(),
		&cli.StringFlag{
			Name:  "journey",
			Usage: "Sync a single journey by ID",
		},
		&cli.StringFlag{
			Name:  "client",
			Usage: "Sync all syncable journeys of one client",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Report what would happen without calling the platform or writing the ledger",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Publish even when content is unchanged or conflicts exist",
		},
		&cli.StringFlag{
			Name:  "resolution",
			Usage: "Conflict policy for this run (skip, overwrite, merge, manual)",
		},
	)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute one synchronization run",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			var resolution conflict.Resolution

			if r := command.String("resolution"); r != "" {
				parsed, err := conflict.ParseResolution(r)
				if err != nil {
					return err
				}

				resolution = parsed
			}

			services, err := newServiceContext(ctx, command)
			if err != nil {
				return err
			}
			defer services.close(ctx)

			run, err := services.orchestrator.Run(ctx, sync.RunRequest{
				Scope: models.SyncScope{
					ClientID:  command.String("client"),
					JourneyID: command.String("journey"),
				},
				DryRun:     command.Bool("dry-run"),
				Force:      command.Bool("force"),
				Resolution: resolution,
			})
			if run != nil {
				printJSON(run)
			}
			if err != nil {
				return err
			}

			if run.Summary.Failed > 0 {
				return fmt.Errorf("%d items failed, see run %s", run.Summary.Failed, run.ID)
			}

			return nil
		},
	}
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "failed to encode output:", err)
	}
}
