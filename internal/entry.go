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

	"github.com/starford/journal/internal/api"
	"github.com/starford/journal/internal/embedding"
	"github.com/starford/journal/internal/index"
	"github.com/starford/journal/internal/journal"
	"github.com/starford/journal/internal/mcpserver"
	"github.com/starford/journal/internal/search"
	"github.com/starford/journal/internal/sidecar"
	"github.com/starford/journal/internal/sse"
	"github.com/starford/journal/internal/storage"
)

// App holds the wired components shared by every entry point.
type App struct {
	Config   *Config
	Logger   *slog.Logger
	Store    *storage.FS
	Provider *embedding.Lazy
	Indexer  *index.Indexer
	Engine   *search.Engine
	Journal  *journal.Manager
}

// Open builds the application components from the given options. Nothing is
// embedded yet; the provider initialises on first use.
func Open(opts ...Option) (*App, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_root", cfg.Journal.ProjectRoot),
		slog.String("user_root", cfg.Journal.UserRoot),
		slog.String("embedding_provider", cfg.Embedding.Provider),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Journal.ProjectRoot, cfg.Journal.UserRoot, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	provider := embedding.NewLazy(providerFactory(cfg.Embedding, logger))
	ix := index.NewIndexer(provider, sidecar.NewCodec(logger), logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Provider: provider,
		Indexer:  ix,
		Engine: search.New(store, ix, search.Config{
			DefaultLimit:  cfg.Search.DefaultLimit,
			ExcerptLength: cfg.Search.ExcerptLength,
			Workers:       cfg.Search.Workers,
		}, logger),
		Journal: journal.NewManager(store, ix, logger),
	}, nil
}

// providerFactory returns the Lazy factory for the configured provider. The
// OpenAI-compatible provider is probed once so that a wrong endpoint or
// dimension fails initialisation instead of every later call.
func providerFactory(cfg EmbeddingConfig, logger *slog.Logger) embedding.Factory {
	return func(ctx context.Context) (embedding.Provider, error) {
		switch cfg.Provider {
		case ProviderOpenAI:
			p, err := embedding.NewOpenAI(embedding.OpenAIConfig{
				APIKey:     cfg.APIKey,
				BaseURL:    cfg.BaseURL,
				Model:      cfg.Model,
				Dimensions: cfg.Dimensions,
				MaxRetries: cfg.MaxRetries,
			})
			if err != nil {
				return nil, err
			}
			vec, err := p.Embed(ctx, "ping")
			if err != nil {
				return nil, err
			}
			logger.Info("embedding provider ready",
				slog.String("provider", cfg.Provider),
				slog.String("model", cfg.Model),
				slog.Int("dimensions", len(vec)))
			return p, nil
		default:
			h := embedding.NewHash(cfg.Dimensions)
			logger.Info("embedding provider ready",
				slog.String("provider", ProviderHash),
				slog.Int("dimensions", h.Dimensions()))
			return h, nil
		}
	}
}

// Run starts the HTTP server, the sidecar watcher and an initial sync.
func Run(ctx context.Context, opts ...Option) error {
	a, err := Open(opts...)
	if err != nil {
		return err
	}
	cfg := a.Config
	logger := a.Logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	a.Journal.SetNotifier(broker.PublishEntryEvent)

	apiRouter := api.NewRouter(a.Engine, a.Journal, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := a.Provider.Init(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"embedding provider unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Warm the provider, then bring sidecars up to date.
	g.Go(func() error {
		if err := a.Provider.Init(gCtx); err != nil {
			logger.Warn("embedding provider init failed, will retry on first use", slog.String("error", err.Error()))
			return nil
		}
		if _, err := index.Sync(gCtx, a.Store, a.Indexer, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, a.Store, a.Indexer, logger, broker.PublishEntryEvent); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
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

// errShutdown cancels the group so the watcher and sync stop with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the journal tools over stdio until the client disconnects.
// Sidecars are kept current by a watcher for the lifetime of the session.
func RunMCP(ctx context.Context, opts ...Option) error {
	a, err := Open(opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(ctx, a.Store, a.Indexer, a.Logger, nil); err != nil {
			a.Logger.Error("watcher failed", slog.String("error", err.Error()))
		}
	}()

	a.Logger.Info("MCP server starting on stdio")
	return mcpserver.New(a.Engine, a.Journal, a.Logger).ServeStdio()
}
