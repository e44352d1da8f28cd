// Package main provides the campaign-sweeper daemon: the scheduled
// reconciliation pass that corrects local/remote state drift.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/nishchith-m1015/campaign-sync/pkg/automation"
	"github.com/nishchith-m1015/campaign-sync/pkg/cmd"
	"github.com/nishchith-m1015/campaign-sync/pkg/log"
	"github.com/nishchith-m1015/campaign-sync/pkg/otelhelper"
	"github.com/nishchith-m1015/campaign-sync/pkg/services"
)

func main() {
	logger := log.WithModule("sweeper")

	command := &cli.Command{
		Name:                  "campaign-sweeper",
		Usage:                 "Periodically reconcile campaign state with the automation engine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "engine-url",
				Usage:    "Automation engine base URL",
				Required: true,
				Sources:  cli.EnvVars("AUTOMATION_ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:    "engine-token",
				Usage:   "Automation engine API token",
				Sources: cli.EnvVars("AUTOMATION_ENGINE_TOKEN"),
			},
			&cli.DurationFlag{
				Name:    "engine-timeout",
				Usage:   "Per-call automation engine timeout",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("AUTOMATION_ENGINE_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for the sweep cadence",
				Value:   "*/5 * * * *",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "lock-ttl",
				Usage:   "Advisory lock TTL for one sweep",
				Value:   4 * time.Minute,
				Sources: cli.EnvVars("SWEEP_LOCK_TTL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the cross-instance sweep lock",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka or gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
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

			logger.InfoContext(ctx, "Initializing Campaign Sweeper",
				"schedule", command.String("schedule"))

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			engine := automation.NewHTTPClient(
				command.String("engine-url"),
				command.String("engine-token"),
				command.Duration("engine-timeout"),
			)
			locker := cmd.NewLocker(command.String("redis-url"), logger)

			sweeper := services.NewSweeper(
				persistence,
				engine,
				locker,
				eventBus,
				newTracer(ctx, command.Bool("tracing"), logger),
				logger,
				command.Duration("lock-ttl"),
			)

			return runSchedule(ctx, logger, sweeper, command.String("schedule"))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}

// runSchedule runs sweeps on the cron cadence until the context is
// cancelled. A sweep still in flight when the next tick fires is skipped.
func runSchedule(ctx context.Context, logger *slog.Logger, sweeper *services.Sweeper, schedule string) error {
	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	_, err := scheduler.AddFunc(schedule, func() {
		result, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "sweep failed", "error", err)

			return
		}

		if result.Skipped {
			logger.InfoContext(ctx, "sweep skipped, lock held elsewhere")
		}
	})
	if err != nil {
		return err
	}

	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()

	logger.Info("Shutting down sweeper")

	return nil
}

func newTracer(ctx context.Context, enabled bool, logger *slog.Logger) trace.Tracer {
	if !enabled {
		return nil
	}

	tracer, err := otelhelper.NewTracer(ctx, "campaign-sweeper")
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)

		return nil
	}

	return tracer
}
