package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/nishchith-m1015/campaign-sync/pkg/authorization"
	"github.com/nishchith-m1015/campaign-sync/pkg/automation"
	"github.com/nishchith-m1015/campaign-sync/pkg/cmd"
	"github.com/nishchith-m1015/campaign-sync/pkg/log"
	"github.com/nishchith-m1015/campaign-sync/pkg/otelhelper"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "campaign-api",
		Usage:                 "Provision and synchronize marketing campaigns",
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
				Name:    "event-bus",
				Usage:   "Event bus type (kafka or gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the cross-instance sweep lock",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "engine-url",
				Usage:   "Automation engine base URL",
				Sources: cli.EnvVars("AUTOMATION_ENGINE_URL"),
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
				Name:    "authorization-url",
				Usage:   "Identity provider base URL for workspace access checks",
				Sources: cli.EnvVars("AUTHORIZATION_URL"),
			},
			&cli.StringFlag{
				Name:    "callback-url",
				Usage:   "Public URL the engine pushes workflow status changes to",
				Sources: cli.EnvVars("CALLBACK_URL"),
			},
			&cli.StringFlag{
				Name:    "reconcile-token",
				Usage:   "Shared secret guarding the reconciliation trigger",
				Sources: cli.EnvVars("RECONCILE_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "callback-token",
				Usage:   "Shared secret guarding the engine callback endpoint",
				Sources: cli.EnvVars("CALLBACK_TOKEN"),
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

			logger.InfoContext(ctx, "Initializing Campaign Sync API")

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

			locker := cmd.NewLocker(command.String("redis-url"), logger)

			var engine automation.Client
			if engineURL := command.String("engine-url"); engineURL != "" {
				engine = automation.NewHTTPClient(engineURL, command.String("engine-token"), command.Duration("engine-timeout"))
			} else {
				logger.WarnContext(ctx, "no automation engine configured, running in degraded local-only mode")
			}

			var authorizer authorization.Authorizer
			if authURL := command.String("authorization-url"); authURL != "" {
				authorizer = authorization.NewHTTPAuthorizer(authURL, 0)
			} else {
				logger.WarnContext(ctx, "no identity provider configured, granting all workspace access")

				authorizer = &authorization.StaticAuthorizer{AllowAll: true}
			}

			api := NewAPI(APIConfig{
				Logger:         logger,
				Persistence:    persistence,
				Authorizer:     authorizer,
				Engine:         engine,
				Locker:         locker,
				EventBus:       eventBus,
				Tracer:         newTracer(ctx, command.Bool("tracing"), logger),
				CallbackURL:    command.String("callback-url"),
				ReconcileToken: command.String("reconcile-token"),
				CallbackToken:  command.String("callback-token"),
			})

			err := api.Start(ctx, command.Int("port"))
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

func newTracer(ctx context.Context, enabled bool, logger *slog.Logger) trace.Tracer {
	if !enabled {
		return nil
	}

	tracer, err := otelhelper.NewTracer(ctx, "campaign-api")
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)

		return nil
	}

	return tracer
}
