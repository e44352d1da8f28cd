// Package main provides the campaign-sync API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/nishchith-m1015/campaign-sync/pkg/authorization"
	"github.com/nishchith-m1015/campaign-sync/pkg/automation"
	"github.com/nishchith-m1015/campaign-sync/pkg/eventbus"
	"github.com/nishchith-m1015/campaign-sync/pkg/events"
	"github.com/nishchith-m1015/campaign-sync/pkg/lock"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
	"github.com/nishchith-m1015/campaign-sync/pkg/services"
	"github.com/nishchith-m1015/campaign-sync/pkg/web"
)

type API struct {
	logger         *slog.Logger
	persistence    persistence.Persistence
	authorizer     authorization.Authorizer
	engine         automation.Client
	locker         lock.Locker
	eventBus       eventbus.EventBus
	tracer         trace.Tracer
	validate       *validator.Validate
	callbackURL    string
	reconcileToken string
	callbackToken  string

	provisioningService *services.Provisioning
}

type APIConfig struct {
	Logger         *slog.Logger
	Persistence    persistence.Persistence
	Authorizer     authorization.Authorizer
	Engine         automation.Client
	Locker         lock.Locker
	EventBus       eventbus.EventBus
	Tracer         trace.Tracer
	CallbackURL    string
	ReconcileToken string
	CallbackToken  string
}

func NewAPI(cfg APIConfig) *API {
	return &API{
		logger:         cfg.Logger,
		persistence:    cfg.Persistence,
		authorizer:     cfg.Authorizer,
		engine:         cfg.Engine,
		locker:         cfg.Locker,
		eventBus:       cfg.EventBus,
		tracer:         cfg.Tracer,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		callbackURL:    cfg.CallbackURL,
		reconcileToken: cfg.ReconcileToken,
		callbackToken:  cfg.CallbackToken,
	}
}

func (a *API) App() *fiber.App {
	campaignService := services.NewCampaigns(a.persistence, a.authorizer, a.logger)
	a.provisioningService = services.NewProvisioning(a.persistence, a.authorizer, a.engine, a.eventBus, a.callbackURL, a.logger)
	toggleService := services.NewToggle(a.persistence, a.authorizer, a.engine, a.eventBus, a.tracer, a.logger)
	sweeperService := services.NewSweeper(a.persistence, a.engine, a.locker, a.eventBus, a.tracer, a.logger, 0)

	handlers := web.NewAPIHandlers(
		campaignService,
		a.provisioningService,
		toggleService,
		sweeperService,
		a.validate,
		a.reconcileToken,
		a.callbackToken,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Campaign Sync API")
	})

	campaigns := app.Group("/campaigns")
	campaigns.Post("/", handlers.ProvisionCampaign)
	campaigns.Get("/", handlers.GetCampaigns)
	campaigns.Get("/:id", handlers.GetCampaign)
	campaigns.Post("/:id/toggle", handlers.ToggleCampaign)
	campaigns.Get("/:id/provisioning", handlers.GetCampaignProvisioning)

	app.Get("/provisions/:id", handlers.GetProvision)
	app.Post("/reconcile", handlers.Reconcile)
	app.Post("/callbacks/automation", handlers.AutomationCallback)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// startProvisioningWorker subscribes to campaign.provisioned events and
// drives the remote provisioning steps in the background, keeping the
// creation endpoint non-blocking.
func (a *API) startProvisioningWorker(ctx context.Context) error {
	if a.engine == nil {
		a.logger.WarnContext(ctx, "automation engine not configured, remote provisioning steps will not run")

		return nil
	}

	err := a.eventBus.Handle(events.CampaignProvisionedEvent, func(ctx context.Context, event any) error {
		provisioned, ok := event.(*events.CampaignProvisioned)
		if !ok {
			return nil
		}

		err := a.provisioningService.RunSteps(ctx, provisioned.CampaignID, provisioned.ProvisionID)
		if err != nil {
			// Step state is persisted; a re-provision or manual re-run
			// resumes from the failed step.
			a.logger.ErrorContext(ctx, "remote provisioning run failed",
				"campaign_id", provisioned.CampaignID,
				"provision_id", provisioned.ProvisionID,
				"error", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return a.eventBus.Subscribe(ctx)
}

func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	err := a.startProvisioningWorker(ctx)
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
