package api

import (
	"context"
	"net/http"

	"github.com/workflowlens/runner-api/internal/api/shared"
)

// Pinger reports whether the backing store is reachable. *sql.DB
// satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthHandler serves GET /health. A nil pinger skips the database
// check and reports liveness only.
func HealthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			if err := pinger.PingContext(r.Context()); err != nil {
				shared.RespondWithErrorAndLog(w, r,
					http.StatusServiceUnavailable, "Database unreachable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
