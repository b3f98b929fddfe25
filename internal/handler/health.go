package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is a dependency the readiness probe pings.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the root greeting and the probe endpoints.
type HealthHandler struct {
	db HealthChecker
}

func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthResponse is the probe response body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleRoot answers GET / with a plain-text greeting.
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Hello World from backend"))
}

// Healthz is the liveness probe: 200 while the process serves requests.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is the readiness probe: 200 only when the database answers.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	status, code := "ok", http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		checks["sqlite"] = "error: " + err.Error()
		status, code = "unhealthy", http.StatusServiceUnavailable
	} else {
		checks["sqlite"] = "ok"
	}

	writeJSON(w, code, HealthResponse{Status: status, Checks: checks})
}
