// Package app wires configuration, storage, metrics, the orchestrator and
// the HTTP API into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/textry/internal/api"
	"github.com/foxzi/textry/internal/config"
	"github.com/foxzi/textry/internal/history"
	"github.com/foxzi/textry/internal/metrics"
	"github.com/foxzi/textry/internal/session"
	"github.com/foxzi/textry/internal/template"
	"github.com/foxzi/textry/internal/transport"
)

// App is the main application
type App struct {
	config       *config.Config
	db           *bolt.DB
	templates    *template.Storage
	history      *history.Store
	orchestrator *session.Orchestrator
	apiServer    *api.Server
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// New creates a new application
func New(cfg *config.Config) (*App, error) {
	logger := SetupLogger(cfg.Logging)

	db, err := OpenStorage(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	templates, err := template.NewStorage(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create template storage: %w", err)
	}

	hist, err := history.NewStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history store: %w", err)
	}

	m := metrics.New()
	metrics.SetGlobal(m)

	tr := NewTransport(cfg, logger)
	orch := session.NewOrchestrator(tr, cfg.Send.Delay, logger.With("component", "orchestrator"))

	apiServer := api.NewServer(orch, templates, hist, &cfg.API, m, logger.With("component", "api"))

	return &App{
		config:       cfg,
		db:           db,
		templates:    templates,
		history:      hist,
		orchestrator: orch,
		apiServer:    apiServer,
		metrics:      m,
		logger:       logger,
	}, nil
}

// Templates returns the template storage.
func (a *App) Templates() *template.Storage { return a.templates }

// History returns the history store.
func (a *App) History() *history.Store { return a.history }

// Orchestrator returns the send orchestrator.
func (a *App) Orchestrator() *session.Orchestrator { return a.orchestrator }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Run starts the API server and blocks until a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.apiServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		a.logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}

	a.orchestrator.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api shutdown failed", "error", err)
	}

	return a.Close()
}

// Close releases the application's resources.
func (a *App) Close() error {
	return a.db.Close()
}

// OpenStorage opens the BoltDB file, creating its directory if needed.
func OpenStorage(path string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// NewTransport builds the transport configured in cfg.
func NewTransport(cfg *config.Config, logger *slog.Logger) transport.Transport {
	if cfg.Transport.Mode == "gateway" {
		return transport.NewHTTPTransport(
			cfg.Transport.Endpoint,
			cfg.Transport.APIKey,
			cfg.Transport.Timeout,
			logger.With("component", "transport"),
		)
	}
	return transport.NewSandbox(logger.With("component", "transport"))
}

// SetupLogger builds the application logger from config.
func SetupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
