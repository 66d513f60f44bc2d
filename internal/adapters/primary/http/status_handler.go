package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raviro/statuspage-backend/internal/core/ports"
)

// StatusHandler serves the public status page snapshot. No authentication:
// anyone with the slug can read it.
type StatusHandler struct {
	statusPageService ports.StatusPageService
	errorHandler      *ErrorHandler
	logger            *slog.Logger
}

// NewStatusHandler creates a new public status handler
func NewStatusHandler(
	statusPageService ports.StatusPageService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *StatusHandler {
	return &StatusHandler{
		statusPageService: statusPageService,
		errorHandler:      errorHandler,
		logger:            logger.With("handler", "status"),
	}
}

// RegisterRoutes sets up routing for the public status endpoint
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{slug}", h.HandleGetSnapshot)
}

// HandleGetSnapshot handles GET /status/{slug}
func (h *StatusHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	snapshot, err := h.statusPageService.GetPublicSnapshot(r.Context(), slug)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, snapshot)
}
