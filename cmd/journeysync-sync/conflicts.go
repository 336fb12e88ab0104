package main

import (
	"context"
	"errors"

	cli "github.com/urfave/cli/v3"

	"github.com/marketloop/journeysync/pkg/conflict"
)

func ConflictsCommand() *cli.Command {
	return &cli.Command{
		Name:  "conflicts",
		Usage: "Inspect and resolve open conflicts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List open conflict records",
				Flags: commonFlags(),
				Action: func(ctx context.Context, command *cli.Command) error {
					services, err := newServiceContext(ctx, command)
					if err != nil {
						return err
					}
					defer services.close(ctx)

					records, err := services.persistence.ConflictRepository().ListOpen(ctx)
					if err != nil {
						return err
					}

					printJSON(records)

					return nil
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve one conflict with an explicit policy",
				ArgsUsage: "<conflict-id>",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "resolution",
						Usage:    "Policy to apply (skip, overwrite, merge)",
						Required: true,
					},
				),
				Action: func(ctx context.Context, command *cli.Command) error {
					conflictID := command.Args().First()
					if conflictID == "" {
						return errors.New("conflict id argument is required")
					}

					resolution, err := conflict.ParseResolution(command.String("resolution"))
					if err != nil {
						return err
					}

					services, err := newServiceContext(ctx, command)
					if err != nil {
						return err
					}
					defer services.close(ctx)

					record, err := services.orchestrator.ResolveConflict(ctx, conflictID, resolution)
					if err != nil {
						return err
					}

					printJSON(record)

					return nil
				},
			},
		},
	}
}
