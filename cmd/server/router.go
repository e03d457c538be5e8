package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/workflowlens/runner-api/internal/api"
	apiMiddleware "github.com/workflowlens/runner-api/internal/api/middleware"
)

// setupRouter creates the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	if len(app.config.Server.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: app.config.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}).Handler)
	}

	jobHandler := api.NewJobHandler(
		app.jobStore,
		app.notifier,
		time.Duration(app.config.Worker.ClaimTimeoutMinutes)*time.Minute,
		app.logger,
	)

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", jobHandler.CreateJob)
		r.Get("/jobs/{id}", jobHandler.GetJob)
		r.Post("/jobs/claim", jobHandler.ClaimJob)
		r.Post("/jobs/{id}/complete", jobHandler.CompleteJob)
		r.Post("/jobs/{id}/fail", jobHandler.FailJob)
		r.Get("/admin/jobs", jobHandler.ListJobs)
		r.Post("/admin/reclaim", jobHandler.ReclaimJobs)
	})

	var pinger api.Pinger
	if app.db != nil {
		pinger = app.db
	}
	r.Get("/health", api.HealthHandler(pinger))

	return r
}
