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

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/articles"
	"github.com/starford/folio/internal/importer"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/search"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/store"
	"github.com/starford/folio/internal/tagging"
)

// services is the wiring shared by every run mode.
type services struct {
	db       *store.DB
	articles *articles.Service
	search   *search.Service
}

func newServices(ctx context.Context, cfg *Config, logger *slog.Logger, notify articles.Notifier) (*services, error) {
	db, err := store.Open(ctx, cfg.Database.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	registry := tagging.NewRegistry(db, cfg.Tags.MaxLength, logger)
	var opts []articles.Option
	if notify != nil {
		opts = append(opts, articles.WithNotifier(notify))
	}
	articleSvc := articles.NewService(db, registry, logger, opts...)

	searchSvc, err := search.NewService(db, cfg.Search.Options(), logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init search: %w", err)
	}
	return &services{db: db, articles: articleSvc, search: searchSvc}, nil
}

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

	// stdout carries the MCP protocol, so logs go to stderr in that mode.
	var out io.Writer = os.Stdout
	if app.mode == ModeMCP {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("import_path", cfg.Import.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if app.mode == ModeMCP {
		return runMCP(ctx, cfg, logger)
	}
	return runServer(ctx, cfg, logger)
}

func runMCP(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	svc, err := newServices(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.db.Close()

	logger.Info("Serving MCP over stdio")
	if err := mcpserver.New(svc.search, svc.articles).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func runServer(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	broker := sse.NewBroker(cfg.Events.TagsThrottle, logger)
	defer broker.Close()

	svc, err := newServices(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer svc.db.Close()

	var imp *importer.Importer
	if cfg.Import.Enabled() {
		if err := os.MkdirAll(cfg.Import.Path, 0o755); err != nil {
			return fmt.Errorf("create import dir: %w", err)
		}
		files, err := storage.NewFS(cfg.Import.Path)
		if err != nil {
			return fmt.Errorf("init import storage: %w", err)
		}
		imp = importer.New(files, svc.articles, svc.db, cfg.Import.DefaultAuthor, logger)

		stats, err := imp.Sync(ctx)
		if err != nil {
			logger.Warn("initial import failed", slog.String("error", err.Error()))
		} else {
			logger.Info("initial import finished",
				slog.Int("imported", stats.Imported),
				slog.Int("unchanged", stats.Unchanged),
				slog.Int("removed", stats.Removed),
				slog.Int("failed", stats.Failed))
		}
	}

	apiRouter := api.NewRouter(svc.search, svc.articles, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.db.Ping(r.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if imp != nil {
		g.Go(func() error {
			if err := imp.Watch(gCtx); err != nil {
				logger.Error("import watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		// SSE streams only end when the broker closes.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
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
