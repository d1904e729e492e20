package server

import (
	"context"
	"log"

	"campus-desk-be/internal/bootstrap"
	"campus-desk-be/internal/config"
	"campus-desk-be/internal/pkg/serverutils"
	"campus-desk-be/pkg/ingest"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		// Multipart overhead on top of the largest accepted PDF.
		BodyLimit: int(ingest.MaxFileSize) + 5*1024*1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Processor-Token",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware(container.Logger))

	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	auth := serverutils.NewJwtMiddleware(cfg.Auth.JWTSecret)
	api := app.Group("/api")

	// Registered ahead of the documents group so the stream is matched
	// before the group's middleware.
	c.StatusStreamHandler.RegisterRoutes(api, auth)
	c.DocumentController.RegisterRoutes(api, auth)
	c.QueryController.RegisterRoutes(api, auth)
	c.ProcessingController.RegisterRoutes(api, serverutils.NewProcessorTokenMiddleware(cfg.Auth.ProcessorToken))

	if c.FileHandler != nil {
		c.FileHandler.RegisterRoutes(app)
	}
}
