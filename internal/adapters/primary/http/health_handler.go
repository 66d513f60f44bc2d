package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db      HealthChecker
	version string
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		version: version,
		logger:  logger.With("handler", "health"),
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HandleLiveness handles GET /health/live. It answers as long as the process
// is serving requests.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.version})
}

// HandleReadiness handles GET /health/ready. It checks the database so load
// balancers stop routing to an instance that lost its store.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:  "unavailable",
			Version: h.version,
		})
		return
	}

	WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.version})
}
