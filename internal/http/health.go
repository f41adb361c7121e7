package http

import (
	"context"
	"net/http"
	"time"

	"github.com/communitytime/allocation-api/internal/http/respond"
)

// Health reports the process is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, respond.Payload{"status": "ok"})
}

// Ready pings Postgres, and Redis when configured.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		respond.JSON(w, http.StatusServiceUnavailable, respond.Payload{
			"success": false,
			"message": "Dependencies unavailable",
			"checks":  status,
		})
		return
	}
	respond.JSON(w, http.StatusOK, respond.Payload{"ready": true, "checks": status})
}
