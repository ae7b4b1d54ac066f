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

	"github.com/starford/herald/internal/api"
	"github.com/starford/herald/internal/mcpserver"
	"github.com/starford/herald/internal/models"
	"github.com/starford/herald/internal/runner"
	"github.com/starford/herald/internal/sse"
	"github.com/starford/herald/internal/watcher"
)

// Run starts the publishing service: passes on a fixed interval and on
// source changes, plus the HTTP API when enabled. It returns when ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("source_path", cfg.Source.Path),
		slog.String("repo_path", cfg.Site.RepoPath),
		slog.String("journal_path", cfg.Journal.Path),
		slog.Bool("git_enabled", cfg.Git.Enabled),
		slog.Bool("http_enabled", cfg.App.HTTP.Enabled),
		slog.Duration("interval", cfg.Sync.Interval),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker receives per-note events from the publisher and pass
	// summaries from the runner.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	st, err := buildStack(ctx, cfg, logger, runner.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer st.Close()
	st.publisher.SetEventHandler(broker.PublishPassEvent)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Scheduled passes.
	g.Go(func() error {
		return st.runner.Run(gCtx)
	})

	// Source changes trigger an early pass. A watcher failure leaves the
	// schedule running.
	if cfg.Sync.Watch {
		g.Go(func() error {
			err := watcher.Watch(gCtx, cfg.Source.Path, cfg.Sync.Debounce, logger, func() {
				st.runner.Trigger()
			})
			if err != nil && gCtx.Err() == nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if cfg.App.HTTP.Enabled {
		httpServer := &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: newRouter(st, broker),
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Publisher stopped")
	return nil
}

// newRouter builds the HTTP surface: unauthenticated health checks and the
// API with its event stream under /api.
func newRouter(st *stack, broker *sse.Broker) http.Handler {
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
		if err := st.journal.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(st.service, st.cfg.Auth.AuthEnabled(), st.cfg.Auth.Token, broker))
	return r
}

// SyncOnce runs a single pass, including the repository pull and push when
// git is enabled, and returns its summary. A failed pass returns both.
func SyncOnce(ctx context.Context, opts ...Option) (*models.PassSummary, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.newLogger()

	st, err := buildStack(ctx, app.config, logger)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	report, err := st.runner.RunOnce(ctx)
	if report == nil {
		return nil, err
	}
	s := report.Summary()
	return &s, err
}

// Preview renders the note at path as it would be published and writes the
// document to w. Only the source tree is read: the site repository and the
// journal are neither opened nor created.
func Preview(ctx context.Context, path string, w io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	r, err := newPublisher(app.config, nil, logger).Preview(ctx, path)
	if err != nil {
		return err
	}
	for _, m := range r.Missing {
		logger.Warn("preview: asset not found", slog.String("asset", m))
	}
	_, err = io.WriteString(w, r.Text)
	return err
}

// ServeMCP serves the MCP tools on stdin/stdout until ctx is cancelled or
// the client disconnects. Passes run only when a client asks for one.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := mcpserver.New(st.service, mcpserver.PublishingRules(cfg.Publish.Policy(), cfg.Site.Layout()))
	logger.Info("MCP server listening on stdio")
	if err := srv.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
