package main

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

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/config"
	httptransport "github.com/example/conference-scheduler/internal/http"
	"github.com/example/conference-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	app := &cli.App{
		Name:  "confsched",
		Usage: "conference schedule versioning and release service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the schedule API server",
				Action: func(c *cli.Context) error {
					return runServe(c.Context, logger)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply pending database migrations and exit",
				Action: func(c *cli.Context) error {
					return runMigrate(c.Context, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.ConnectionPool, *sqlite.Storage, error) {
	pool, err := sqlite.NewConnectionPool(sqlite.DefaultPoolConfig(cfg.SQLiteDSN))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return pool, sqlite.NewStorage(pool), nil
}

func runMigrate(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, _, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	logger.Info("migrations applied", "dsn", cfg.SQLiteDSN)
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := uuid.NewString
	now := time.Now

	cache := application.NewMemoryDiffCache(cfg.DiffCacheSize, now)
	diffService := application.NewDiffServiceWithLogger(storage, cache, cfg.DiffDraftTTL, cfg.DiffReleasedTTL, logger)
	conflictService := application.NewConflictServiceWithLogger(storage, logger)
	planner := application.NewNotificationPlannerWithLogger(storage, now, logger)
	releaseService := application.NewReleaseServiceWithLogger(storage, diffService, planner, nil, nil, idGenerator, now, logger)

	scheduleHandler := httptransport.NewScheduleHandler(storage, diffService, conflictService, releaseService, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Schedules:  scheduleHandler,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("schedule API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
