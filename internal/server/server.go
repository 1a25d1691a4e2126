package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tunno/tunno/internal/server/auth"
	"github.com/tunno/tunno/internal/server/config"
	"github.com/tunno/tunno/internal/server/handlers"
	"github.com/tunno/tunno/internal/server/middleware"
	"github.com/tunno/tunno/internal/server/session"
	"github.com/tunno/tunno/internal/server/storage"
)

// Server is the desktop-side sync HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New wires the routes: open ping/connection endpoints, token-protected
// sync and file endpoints.
func New(cfg *config.Config, library storage.Library, tokens *auth.Service, tracker *session.Tracker, logger *slog.Logger) *Server {
	pingHandler := handlers.NewPingHandler(logger)
	connectionHandler := handlers.NewConnectionHandler(cfg.Server.Port, tracker, logger)
	syncHandler := handlers.NewSyncHandler(library, tracker, logger)
	filesHandler := handlers.NewFilesHandler(library, tracker, logger)

	r := chi.NewRouter()
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingWithSkip(logger, []string{"/ping"}))

	r.Get("/ping", pingHandler.Ping)
	r.Get("/connection", connectionHandler.Connection)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(logger, tokens))

		r.Post("/sync/compare", syncHandler.Compare)
		r.Post("/sync/batch", syncHandler.Batch)
		r.Post("/sync/complete", syncHandler.Complete)
		r.Post("/sync/abort", syncHandler.Abort)

		r.Get("/files/audio/{fingerprint}", filesHandler.Audio)
		r.Get("/files/thumbnail/{fingerprint}/{kind}", filesHandler.Thumbnail)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			// Без WriteTimeout: отдача аудиофайлов по медленной сети может
			// занимать непредсказуемо долго
		},
		logger: logger,
	}
}

// Start blocks serving requests until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("sync server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
