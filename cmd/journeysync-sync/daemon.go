package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/marketloop/journeysync/pkg/conflict"
	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/otelhelper"
	"github.com/marketloop/journeysync/pkg/sync"
)

func DaemonCommand() *cli.Command {
	flags := append(commonFlags(),
		&cli.StringFlag{
			Name:    "schedule",
			Usage:   "Cron expression for periodic runs",
			Value:   "*/15 * * * *",
			Sources: cli.EnvVars("SYNC_SCHEDULE"),
		},
		&cli.StringFlag{
			Name:  "client",
			Usage: "Restrict periodic runs to one client",
		},
		&cli.StringFlag{
			Name:  "resolution",
			Usage: "Conflict policy for periodic runs (skip, overwrite, merge, manual)",
		},
	)

	return &cli.Command{
		Name:    "daemon",
		Aliases: []string{"d"},
		Usage:   "Run synchronization on a schedule until interrupted",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			schedule := command.String("schedule")
			if _, err := cron.ParseStandard(schedule); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

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

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			tracer, err := otelhelper.NewTracer(runCtx, "journeysync-sync")
			if err != nil {
				return fmt.Errorf("initializing tracer: %w", err)
			}

			req := sync.RunRequest{
				Scope:      models.SyncScope{ClientID: command.String("client")},
				Resolution: resolution,
			}

			scheduler := cron.New()

			_, err = scheduler.AddFunc(schedule, func() {
				spanCtx, span := otelhelper.StartSpan(runCtx, tracer, "sync.scheduled_run",
					attribute.String(otelhelper.ClientIDKey, req.Scope.ClientID))
				defer span.End()

				run, err := services.orchestrator.Run(spanCtx, req)
				if err != nil {
					otelhelper.SetError(span, err)
					services.logger.ErrorContext(spanCtx, "Scheduled sync run failed", "error", err)

					return
				}

				span.SetAttributes(
					attribute.String(otelhelper.SyncRunIDKey, run.ID),
					attribute.Int("journeysync.run.synced", run.Summary.Synced),
					attribute.Int("journeysync.run.conflicted", run.Summary.Conflicted),
					attribute.Int("journeysync.run.failed", run.Summary.Failed),
				)
			})
			if err != nil {
				return fmt.Errorf("registering schedule: %w", err)
			}

			scheduler.Start()

			services.logger.InfoContext(ctx, "Sync daemon started", "schedule", schedule)

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigs:
				services.logger.InfoContext(ctx, "Shutting down", "signal", sig)
			case <-ctx.Done():
			}

			cancel()
			<-scheduler.Stop().Done()

			return nil
		},
	}
}
