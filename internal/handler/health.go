package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is a backend the readiness check pings.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    HealthChecker
	cache HealthChecker
}

// NewHealthHandler takes nil for db or cache when they are not configured.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: cache,
	}
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness check. The classifier has no dependencies, so the
// process being up is enough.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is the readiness check. It pings every configured dependency and
// returns 503 if any of them fails.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"postgres": check(ctx, h.db),
		"redis":    check(ctx, h.cache),
	}

	status, code := "ok", http.StatusOK
	for _, result := range checks {
		if result != "ok" && result != "not configured" {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, HealthResponse{Status: status, Checks: checks})
}

func check(ctx context.Context, dep HealthChecker) string {
	if dep == nil {
		return "not configured"
	}
	if err := dep.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
