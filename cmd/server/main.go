package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	sceneflow "github.com/roleverse/sceneflow"
	"github.com/roleverse/sceneflow/internal/config"
	"github.com/roleverse/sceneflow/internal/handler"
	"github.com/roleverse/sceneflow/internal/lore"
	"github.com/roleverse/sceneflow/internal/middleware"
	"github.com/roleverse/sceneflow/internal/notify"
	"github.com/roleverse/sceneflow/internal/repository"
	"github.com/roleverse/sceneflow/internal/responder"
	"github.com/roleverse/sceneflow/internal/scene"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(sceneflow.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := repository.NewPostgres(pool)

	// Seed stock roles and scene templates
	if err := scene.EnsureBuiltins(ctx, store); err != nil {
		slog.Error("failed to seed builtins", "error", err)
		os.Exit(1)
	}

	// Ops notifier (optional, nil when unconfigured)
	notifier, err := notify.New(cfg.NotifyBotToken, cfg.NotifyChatID)
	if err != nil {
		slog.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}

	scenes, err := scene.New(scene.Deps{
		Store:         store,
		Responder:     responder.New(cfg.OpenRouterKey, cfg.DefaultModel),
		Notifier:      notifier,
		Seed:          cfg.SchedulerSeed,
		ContextWindow: cfg.ContextWindow,
		Logger:        logger,
	})
	if err != nil {
		slog.Error("failed to create scene service", "error", err)
		os.Exit(1)
	}

	h := handler.New(handler.Deps{
		Scenes: scenes,
		Store:  store,
		Lore:   lore.New(),
		Logger: logger,
	})

	// Setup router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: config.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
