package server

import (
	"log"
	"strings"
	"time"

	"game-exploration-be/internal/bootstrap"
	"game-exploration-be/internal/config"
	"game-exploration-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const (
	// Stage E replies and fix requests carry whole prototypes.
	bodyLimit       = 10 * 1024 * 1024
	shutdownTimeout = 15 * time.Second
)

type Server struct {
	app *fiber.App
	cfg *config.Config
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "game-exploration-be",
		BodyLimit:    bodyLimit,
		ErrorHandler: serverutils.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
	}))
	app.Use(otelfiber.Middleware(otelfiber.WithNext(untraced)))
	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, container)

	return &Server{app: app, cfg: cfg}
}

// untraced skips long-lived streams and probes.
func untraced(c *fiber.Ctx) bool {
	return c.Path() == "/healthz" || strings.HasPrefix(c.Path(), "/ws/")
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Listening on :%s (%s)", s.cfg.App.Port, s.cfg.App.Environment)
	return s.app.Listen(":" + s.cfg.App.Port)
}

// Shutdown waits for in-flight pipeline requests up to shutdownTimeout.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("ok", fiber.Map{"status": "ok"}))
	})

	api := app.Group("/api/v1")
	c.ExplorationController.RegisterRoutes(api)
	c.VersionController.RegisterRoutes(api)
	c.DebugController.RegisterRoutes(api)

	c.StreamHandler.RegisterRoutes(app)
}
