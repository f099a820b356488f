// The worker consumes analytics requests from NSQ, dedups them against the
// Mongo result cache, runs the matching handler and publishes the reply.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sravz-backend/internal/compute"
	"sravz-backend/internal/dispatcher"
	"sravz-backend/internal/frames"
	"sravz-backend/internal/handlers"
	"sravz-backend/internal/janitor"
	"sravz-backend/internal/objectstore"
	"sravz-backend/internal/provider"
	"sravz-backend/internal/resultstore"
	"sravz-backend/internal/router"
	"sravz-backend/internal/status"
	appconfig "sravz-backend/pkg/config"
	"sravz-backend/pkg/database"
	"sravz-backend/pkg/logging"

	_ "go.uber.org/automaxprocs"
)

func main() {
	logging.Setup()
	startedAt := time.Now()

	cfg, err := appconfig.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Starting worker", "env", cfg.NodeEnv, "topic", cfg.BackendTopic)

	// The compute runtime and the parquet writer both expect this directory.
	if err := os.MkdirAll(frames.TempDir, 0o755); err != nil {
		slog.Error("Failed to create temp directory", "dir", frames.TempDir, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewMongoDB(ctx, cfg.MongoURI, cfg.EnableTelemetry)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}

	results := resultstore.New(db)
	if err := results.EnsureIndexes(ctx); err != nil {
		slog.Warn("Failed to ensure result cache indexes", "error", err)
	}

	store, err := objectstore.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build object store client", "error", err)
		os.Exit(1)
	}

	cache := frames.NewCache(store, provider.NewClient(cfg, store))
	bridge := compute.NewBridge(compute.NewExecRuntime())

	rtr := router.New(handlers.Deps{
		Frames: cache,
		Store:  store,
		Bridge: bridge,
		Config: cfg,
	})

	bus, err := dispatcher.NewBus(cfg)
	if err != nil {
		slog.Error("Failed to build bus", "error", err)
		os.Exit(1)
	}

	disp := dispatcher.New(cfg, rtr, results, bus)
	if err := bus.StartConsuming(disp); err != nil {
		slog.Error("Failed to start consuming", "error", err)
		os.Exit(1)
	}

	sweeper := janitor.New(frames.TempDir)
	if err := sweeper.Start(); err != nil {
		slog.Warn("Failed to start temp sweeper", "error", err)
	}

	var statusSrv interface{ Shutdown(context.Context) error }
	if cfg.StatusPort > 0 {
		statusSrv = status.Serve(cfg.StatusPort, status.NewRouter(db, disp.Metrics(), startedAt))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	slog.Info("Shutting down", "signal", received.String())

	bus.Stop()
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if statusSrv != nil {
		if err := statusSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Status server shutdown failed", "error", err)
		}
	}
	if err := db.Close(shutdownCtx); err != nil {
		slog.Warn("MongoDB disconnect failed", "error", err)
	}

	slog.Info("Worker stopped", "uptime", time.Since(startedAt).Round(time.Second).String())
}
