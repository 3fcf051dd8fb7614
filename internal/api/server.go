// Package api exposes the HTTP control surface: starting and observing
// send sessions, template management and history export.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/textry/internal/config"
	"github.com/foxzi/textry/internal/history"
	"github.com/foxzi/textry/internal/metrics"
	"github.com/foxzi/textry/internal/session"
	"github.com/foxzi/textry/internal/template"
)

// Server is the HTTP API server
type Server struct {
	router       *chi.Mux
	httpServer   *http.Server
	orchestrator *session.Orchestrator
	templates    *template.Storage
	history      *history.Store
	config       *config.APIConfig
	metrics      *metrics.Metrics
	logger       *slog.Logger
	startTime    time.Time

	// selectedTemplate is the caller-owned template selection; cleared
	// when the selected template is deleted.
	selMu            sync.Mutex
	selectedTemplate string
}

// NewServer creates a new API server
func NewServer(
	orch *session.Orchestrator,
	templates *template.Storage,
	hist *history.Store,
	cfg *config.APIConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		orchestrator: orch,
		templates:    templates,
		history:      hist,
		config:       cfg,
		metrics:      m,
		logger:       logger,
		startTime:    time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	// Health check and metrics (no auth required)
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metricsHandler())
	}

	// API v1 routes (auth required)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/send", s.handleSend)
		r.Post("/cancel", s.handleCancel)
		r.Post("/retry", s.handleRetry)
		r.Get("/session", s.handleSession)

		r.Get("/history", s.handleHistory)
		r.Get("/history/export", s.handleHistoryExport)

		r.Get("/templates", s.handleListTemplates)
		r.Post("/templates", s.handleCreateTemplate)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Put("/templates/{id}", s.handleUpdateTemplate)
		r.Delete("/templates/{id}", s.handleDeleteTemplate)
		r.Post("/templates/{id}/select", s.handleSelectTemplate)
	})
}

// Router returns the configured router, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
