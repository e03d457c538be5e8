// Package main implements the entry point for the runner API server:
// a durable job queue over Postgres with embedded analysis workers,
// a stale-claim reclaimer, and an HTTP API for producers and external
// workers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/workflowlens/runner-api/internal/config"
	"github.com/workflowlens/runner-api/internal/platform/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a config file (optional; env vars take precedence)")
		migrateCmd = flag.String("migrate", "", "run a migration command (up, down, status, version) and exit")
	)
	flag.Parse()

	if err := run(*configPath, *migrateCmd); err != nil {
		log.Fatalf("runner-api: %v", err)
	}
}

// run wires configuration, logging, the database, and either executes
// a migration command or starts the long-running application.
func run(configPath, migrateCmd string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Worker.Count)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("error closing database connection", "error", err)
		}
	}()

	if migrateCmd != "" {
		return runMigrations(db, migrateCmd, appLogger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}
