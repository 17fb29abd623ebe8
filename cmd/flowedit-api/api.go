// Package main provides the workflow editor API server.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/flowedit/pkg/eventbus"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/dukex/flowedit/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

const shutdownTimeout = 10 * time.Second

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	sessions    *web.SessionManager
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	factory web.SessionFactory,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		sessions:    web.NewSessionManager(logger, factory),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.sessions, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Workflow Editor API")
	})

	app.Get("/health", handlers.HealthCheck)
	app.Get("/node-types", handlers.GetNodeTypes)

	s := app.Group("/sessions")
	s.Post("/", handlers.CreateSession)
	s.Get("/:sessionId", handlers.GetSession)
	s.Delete("/:sessionId", handlers.CloseSession)
	s.Post("/:sessionId/load", handlers.LoadWorkflow)
	s.Get("/:sessionId/catalog", handlers.GetCatalog)
	s.Put("/:sessionId/details", handlers.SetDetails)
	s.Post("/:sessionId/save", handlers.Save)
	s.Post("/:sessionId/execute", handlers.Execute)
	s.Get("/:sessionId/dot", handlers.ExportDOT)
	s.Get("/:sessionId/collaborators", handlers.GetCollaborators)

	// Graph endpoints:
	s.Get("/:sessionId/nodes", handlers.GetNodes)
	s.Post("/:sessionId/nodes", handlers.AddNode)
	s.Patch("/:sessionId/nodes/:nodeId", handlers.UpdateNode)
	s.Delete("/:sessionId/nodes/:nodeId", handlers.DeleteNode)
	s.Get("/:sessionId/connections", handlers.GetConnections)
	s.Post("/:sessionId/connections", handlers.Connect)
	s.Delete("/:sessionId/connections/:connectionId", handlers.Disconnect)

	// Canvas interaction endpoints:
	s.Put("/:sessionId/selection", handlers.Select)
	s.Delete("/:sessionId/selection", handlers.Deselect)
	s.Post("/:sessionId/pointer/down", handlers.PointerDown)
	s.Post("/:sessionId/pointer/move", handlers.PointerMove)
	s.Post("/:sessionId/pointer/up", handlers.PointerUp)
	s.Post("/:sessionId/pointer/leave", handlers.PointerLeave)

	// Generation endpoints:
	s.Post("/:sessionId/generate", handlers.Generate)
	s.Post("/:sessionId/apply", handlers.ApplyGenerated)

	return app
}

// WatchChanges flags sessions whose workflow is edited by another session,
// on this instance or any other publishing to the bus.
func (a *API) WatchChanges(ctx context.Context, bus eventbus.EventSubscriber) error {
	return eventbus.NewChangeListener(bus, a.sessions, a.logger).Start(ctx)
}

// Start serves until ctx is done, then shuts the server down and closes every
// open session so pending autosaves are settled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	err := app.Listen(":" + strconv.Itoa(port))

	a.sessions.CloseAll()

	return err
}
