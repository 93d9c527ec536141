// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tactica/internal/api"
	"github.com/starford/tactica/internal/gateway"
	"github.com/starford/tactica/internal/sessiondb"
	"github.com/starford/tactica/internal/sessionservice"
	"github.com/starford/tactica/internal/sse"
	"github.com/starford/tactica/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// NewLogger builds the structured JSON logger and installs it as default.
func NewLogger(cfg *Config, out io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// OpenGateway opens the persistence gateway selected by the storage config.
func OpenGateway(cfg *StorageConfig) (gateway.Gateway, error) {
	switch cfg.Backend {
	case BackendFS:
		if err := os.MkdirAll(cfg.SessionsDir, 0o755); err != nil {
			return nil, fmt.Errorf("create sessions dir: %w", err)
		}
		store, err := storage.NewFS(cfg.SessionsDir)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		return storage.NewSessions(store), nil
	default:
		db, err := sessiondb.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sessiondb: %w", err)
		}
		return db, nil
	}
}

// OpenService opens the gateway and wraps it in a session service. The
// caller closes the returned gateway.
func OpenService(cfg *Config, logger *slog.Logger, pub sessionservice.Publisher) (*sessionservice.Service, gateway.Gateway, error) {
	gw, err := OpenGateway(&cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return sessionservice.NewService(gw, cfg.Editor.Settings(), logger, pub), gw, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := NewLogger(cfg, app.logOutput)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("sqlite_path", cfg.Storage.SQLitePath),
		slog.String("sessions_dir", cfg.Storage.SessionsDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.App.HTTP.EventThrottle)
	defer broker.Close()

	svc, gw, err := OpenService(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer gw.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := gw.List(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Session documents can be edited outside the server on the fs backend.
	if cfg.Storage.Backend == BackendFS {
		g.Go(func() error {
			err := storage.Watch(gCtx, cfg.Storage.SessionsDir, logger, func(kind, id string) {
				broker.PublishSessionEvent(kind, id)
			})
			if err != nil {
				logger.Warn("watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
