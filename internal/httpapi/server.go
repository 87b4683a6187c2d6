// Package httpapi is the narrow HTTP surface in front of the pipeline:
// auth, job submission, job/media lookup, queue stats, and health.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediascraper/internal/cache"
	"mediascraper/internal/config"
	"mediascraper/internal/metrics"
	"mediascraper/internal/pipeline"
	"mediascraper/internal/store"
)

// Server wraps the Fiber app and its collaborators.
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	store  *store.Store
	cache  *cache.Cache
	ctl    *pipeline.Controller
	log    *slog.Logger
	health *healthChecker
}

// New builds the Fiber application: middleware chain, health and
// metrics endpoints, then the authenticated API routes.
func New(cfg *config.Config, st *store.Store, c *cache.Cache, ctl *pipeline.Controller, log *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: newErrorHandler(log),
	})

	s := &Server{
		app:    app,
		cfg:    cfg,
		store:  st,
		cache:  c,
		ctl:    ctl,
		log:    log,
		health: newHealthChecker(st, c),
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", st)
		return c.Next()
	})
	app.Use(s.requestLoggingMiddleware())

	app.Get("/health", s.handleHealth)
	app.Get("/health/detailed", s.handleHealthDetailed)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	auth := basicAuthMiddleware(cfg, st)
	api := app.Group("/api", auth)

	api.Post("/auth/login", s.handleLogin)
	api.Get("/auth/me", s.handleMe)

	api.Post("/scrape", s.handleSubmitScrape)
	api.Get("/scrape/queue/stats", s.handleQueueStats)

	api.Get("/jobs", s.handleListJobs)
	api.Get("/jobs/:id", s.handleGetJob)

	api.Get("/media", s.handleListMedia)
	api.Get("/media/stats", s.handleMediaStats)
	api.Get("/media/:id", s.handleGetMedia)

	return s
}

// Listen starts the HTTP server, blocking until it stops.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops accepting new connections.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency)

		if s.log != nil {
			s.log.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	}
}
