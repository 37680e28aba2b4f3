// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/malaztl/nocturne/internal/api"
	"github.com/malaztl/nocturne/internal/draft"
	"github.com/malaztl/nocturne/internal/mcpserver"
	"github.com/malaztl/nocturne/internal/remote"
	"github.com/malaztl/nocturne/internal/session"
	"github.com/malaztl/nocturne/internal/sse"
	"github.com/malaztl/nocturne/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_dir", cfg.Store.Dir),
		slog.String("sqlite_path", cfg.Store.SQLitePath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Fallback record directory.
	files, err := store.NewFiles(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("init record dir: %w", err)
	}

	// Primary backend is optional; without it the store runs files-only.
	var primary store.Backend
	if cfg.Store.SQLitePath != "" {
		sq := store.NewSQLite(cfg.Store.SQLitePath)
		defer sq.Close()
		primary = sq
	}

	st := store.New(primary, files, logger)

	sessions := session.NewCache(files, logger)

	// The workstation draft lives in the watched file directory, like the
	// session snapshot: the watcher is the only cross-process change
	// signal and it sees nothing written to the database primary. The
	// primary serves the general record space.
	draftStore := store.New(nil, files, logger)
	coordinator := draft.NewCoordinator(draftStore, store.NewNovelDraftKey, cfg.Draft.AutosaveDelay(), logger)
	coordinator.Load(ctx)

	// MCP mode serves tools over stdio instead of HTTP.
	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		srv := mcpserver.New(coordinator, sessions)
		err := srv.ServeStdio()
		coordinator.Flush()
		return err
	}

	// SSE broker. The watcher below is the single publication path: every
	// session and draft write, local or foreign, lands in the watched
	// directory and reaches SSE clients exactly once.
	broker := sse.NewBroker(2 * time.Second)

	remoteClient := remote.NewClient(cfg.Remote.BaseURL, "", cfg.Remote.Timeout())

	// Build API service and router.
	svc := api.NewService(st, coordinator, sessions, remoteClient)
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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
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

	// Watch the record directory. The watcher observes local writes (its
	// own renames) and foreign-process writes alike, so every change
	// reaches the session cache, the draft coordinator, and SSE clients
	// through this one path.
	g.Go(func() error {
		return store.Watch(gCtx, files, logger, func(op, key string) {
			sessions.HandleStoreEvent(key)
			coordinator.HandleStoreEvent(gCtx, key)

			switch key {
			case store.SessionKey:
				broker.PublishChange("session.updated", key)
			case store.NewNovelDraftKey:
				if op == store.OpDelete {
					broker.PublishChange("draft.cleared", key)
				} else {
					broker.PublishChange("draft.updated", key)
				}
			default:
				broker.PublishChange(op, key)
			}
		})
	})

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Commit any draft edits still inside the quiescence window.
		coordinator.Flush()
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
