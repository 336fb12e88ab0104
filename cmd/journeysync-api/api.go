// Package main provides the JourneySync API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/marketloop/journeysync/pkg/conflict"
	"github.com/marketloop/journeysync/pkg/eventbus"
	"github.com/marketloop/journeysync/pkg/journey"
	"github.com/marketloop/journeysync/pkg/ledger"
	"github.com/marketloop/journeysync/pkg/persistence"
	"github.com/marketloop/journeysync/pkg/publisher"
	"github.com/marketloop/journeysync/pkg/remote"
	"github.com/marketloop/journeysync/pkg/sync"
	"github.com/marketloop/journeysync/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	remoteAPI   remote.API
	ledgerStore ledger.Store
	workers     int
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	remoteAPI remote.API,
	ledgerStore ledger.Store,
	workers int,
) *API {
	return &API{
		logger:      logger,
		persistence: store,
		eventBus:    eventBus,
		remoteAPI:   remoteAPI,
		ledgerStore: ledgerStore,
		workers:     workers,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	journeyService := journey.NewService(a.persistence, a.eventBus, a.logger)
	ledgerService := ledger.NewService(a.ledgerStore, a.logger)
	pub := publisher.New(a.remoteAPI, ledgerService, a.persistence.TouchpointRepository(), a.logger)
	detector := conflict.NewDetector(a.remoteAPI, ledgerService, a.logger)
	orchestrator := sync.NewOrchestrator(
		a.persistence,
		pub,
		detector,
		ledgerService,
		a.remoteAPI,
		a.eventBus,
		sync.Config{Workers: a.workers},
		a.logger,
	)

	handlers := web.NewAPIHandlers(journeyService, orchestrator, pub, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("JourneySync API")
	})

	j := app.Group("/journeys")
	j.Get("/", handlers.GetJourneys)
	j.Post("/", handlers.CreateJourney)
	j.Get("/:id", handlers.GetJourney)
	j.Patch("/:id", handlers.UpdateJourney)
	j.Delete("/:id", handlers.DeleteJourney)
	j.Post("/:id/versions", handlers.CreateVersionSnapshot)
	j.Get("/:id/versions", handlers.GetVersionSnapshots)

	// Touchpoint endpoints:
	j.Post("/:id/touchpoints", handlers.CreateTouchpoint)
	j.Get("/:id/touchpoints", handlers.GetTouchpoints)
	j.Put("/:id/touchpoints/order", handlers.ReorderTouchpoints)
	j.Get("/:id/touchpoints/:touchpointId", handlers.GetTouchpoint)
	j.Patch("/:id/touchpoints/:touchpointId", handlers.UpdateTouchpoint)
	j.Delete("/:id/touchpoints/:touchpointId", handlers.DeleteTouchpoint)
	j.Get("/:id/touchpoints/:touchpointId/publish-status", handlers.GetPublishStatus)

	s := app.Group("/sync")
	s.Post("/runs", handlers.TriggerSyncRun)
	s.Get("/runs", handlers.GetSyncRuns)
	s.Get("/runs/:id", handlers.GetSyncRun)

	c := app.Group("/conflicts")
	c.Get("/", handlers.GetOpenConflicts)
	c.Post("/:id/resolve", handlers.ResolveConflict)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
