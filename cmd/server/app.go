package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/workflowlens/runner-api/internal/analysis"
	"github.com/workflowlens/runner-api/internal/config"
	"github.com/workflowlens/runner-api/internal/notifier"
	"github.com/workflowlens/runner-api/internal/platform/postgres"
	"github.com/workflowlens/runner-api/internal/store"
	"github.com/workflowlens/runner-api/internal/worker"
)

// application holds the shared application dependencies so that wiring
// and cleanup live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jobStore  store.JobStore
	notifier  worker.Notifier
	workers   []*worker.Worker
	reclaimer *worker.Reclaimer
}

// newApplication initializes all application components from the
// loaded configuration.
//
// The embedded workers are optional: with no Gemini API key configured
// the server still runs the queue and the HTTP API, and external
// workers drive jobs through the claim/complete endpoints instead.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		db:       db,
		jobStore: postgres.NewPostgresJobStore(db),
	}

	if cfg.Notifier.WebhookURL != "" {
		app.notifier = notifier.NewWebhook(
			cfg.Notifier.WebhookURL,
			cfg.Notifier.SigningSecret,
			time.Duration(cfg.Notifier.TimeoutSeconds)*time.Second,
			logger,
		)
		logger.Info("webhook notifier enabled", "url", cfg.Notifier.WebhookURL)
	} else {
		app.notifier = worker.NoopNotifier{}
		logger.Info("webhook notifier disabled")
	}

	if cfg.Worker.Count > 0 {
		if cfg.Analysis.GeminiAPIKey == "" {
			logger.Warn("no Gemini API key configured, embedded workers disabled; " +
				"jobs must be driven through the HTTP claim endpoints")
		} else {
			executor, err := analysis.NewAnalyzer(ctx, logger, cfg.Analysis)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
			}

			workerCfg := worker.Config{
				PollInterval: time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second,
				MaxBackoff:   time.Duration(cfg.Worker.MaxBackoffSeconds) * time.Second,
			}
			hostname, err := os.Hostname()
			if err != nil {
				hostname = "runner"
			}
			for i := 0; i < cfg.Worker.Count; i++ {
				id := fmt.Sprintf("%s-%d-%d", hostname, os.Getpid(), i)
				app.workers = append(app.workers,
					worker.New(id, app.jobStore, executor, app.notifier, workerCfg, logger))
			}
			logger.Info("embedded workers initialized", "count", len(app.workers))
		}
	}

	app.reclaimer = worker.NewReclaimer(
		app.jobStore,
		time.Duration(cfg.Worker.ReclaimIntervalSeconds)*time.Second,
		time.Duration(cfg.Worker.ClaimTimeoutMinutes)*time.Minute,
		logger,
	)

	logger.Info("application initialized")
	return app, nil
}

// Run starts the HTTP server, the embedded workers, and the reclaimer,
// and blocks until the context is cancelled and everything has shut
// down.
func (app *application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.startHTTPServer(ctx, app.setupRouter())
	})

	for _, w := range app.workers {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	g.Go(func() error {
		return app.reclaimer.Run(ctx)
	})

	return g.Wait()
}
