package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/eventstream"
	"github.com/driftline/driftline/pkg/ingest"
	"github.com/driftline/driftline/pkg/plugin"
	"github.com/driftline/driftline/pkg/session"
	"github.com/driftline/driftline/pkg/timeline"
)

// Syncer runs one timeline ingestion pass. The ingester satisfies it.
type Syncer interface {
	Sync(ctx context.Context) (*ingest.Stats, error)
}

// Deps are the collaborators the server is built from. Sessions, Items,
// and Registry are required; Publisher and Ingest are optional.
type Deps struct {
	Sessions  session.Store
	Items     timeline.Store
	Registry  *plugin.Registry
	Publisher eventstream.Publisher
	Ingest    Syncer
}

// Server is the HTTP server for the driftline timeline.
type Server struct {
	config Config
	deps   Deps
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The stores are injected to allow
// sharing with the CLI's sync path.
func NewServer(config Config, deps Deps, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		deps:   deps,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	api := app.Group("/api", s.sessionMiddleware)
	api.Get("/algorithms", s.handleListAlgorithms)
	api.Get("/algorithms/:name/form", s.handleAlgorithmForm)
	api.Get("/timeline", s.handleTimeline)
	api.Post("/timeline/train", s.handleTrain)
	api.Post("/timeline/sync", s.handleSync)
	api.Get("/settings", s.handleGetSettings)
	api.Post("/settings", s.handlePostSettings)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
