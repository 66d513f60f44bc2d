package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/raviro/statuspage-backend/internal/adapters/primary/validation"
	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

var incidentStatusValues = []string{
	string(domain.IncidentInvestigating),
	string(domain.IncidentIdentified),
	string(domain.IncidentMonitoring),
	string(domain.IncidentResolved),
}

// IncidentHandler handles HTTP requests for incidents
type IncidentHandler struct {
	incidentService ports.IncidentService
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(
	incidentService ports.IncidentService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *IncidentHandler {
	return &IncidentHandler{
		incidentService: incidentService,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "incident"),
	}
}

// RegisterRoutes sets up routing for single-incident endpoints. List and
// create live under /organizations/{orgID}/incidents.
func (h *IncidentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{incidentID}", func(r chi.Router) {
		r.Get("/", h.HandleGetIncident)
		r.Delete("/", h.HandleDeleteIncident)
		r.Post("/updates", h.HandleAddUpdate)
		r.Patch("/status", h.HandleUpdateStatus)
	})
}

// CreateIncidentRequest defines the expected JSON body for opening an
// incident
type CreateIncidentRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Status           string   `json:"status"`
	AffectedServices []string `json:"affectedServices"`
	InitialMessage   string   `json:"initialMessage"`
}

// Validate validates the create incident request
func (r *CreateIncidentRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxIncidentTitleLength)

	v.OneOf("status", r.Status, incidentStatusValues)

	v.MaxLength("initialMessage", r.InitialMessage, domain.MaxUpdateMessageLength)

	for _, id := range r.AffectedServices {
		v.UUID("affectedServices", id)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AddUpdateRequest defines the expected JSON body for a timeline entry
type AddUpdateRequest struct {
	Message string `json:"message"`
}

// Validate validates the add update request
func (r *AddUpdateRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("message", r.Message).
		MaxLength("message", r.Message, domain.MaxUpdateMessageLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateIncidentStatusRequest defines the expected JSON body for a status
// change
type UpdateIncidentStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the update status request
func (r *UpdateIncidentStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		OneOf("status", r.Status, incidentStatusValues)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// IncidentDTO defines the JSON response for incidents. It matches the shape
// embedded in incident_created events.
type IncidentDTO = domain.IncidentSnapshot

func toIncidentDTOs(incidents []*domain.Incident) []IncidentDTO {
	response := make([]IncidentDTO, 0, len(incidents))
	for _, incident := range incidents {
		response = append(response, domain.NewIncidentSnapshot(incident))
	}
	return response
}

// HandleListIncidents handles GET /organizations/{orgID}/incidents
func (h *IncidentHandler) HandleListIncidents(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	incidents, err := h.incidentService.ListIncidents(r.Context(), orgID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toIncidentDTOs(incidents))
}

// HandleCreateIncident handles POST /organizations/{orgID}/incidents
func (h *IncidentHandler) HandleCreateIncident(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[CreateIncidentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	affected := make([]uuid.UUID, 0, len(req.AffectedServices))
	for _, raw := range req.AffectedServices {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid affected service id"))
			return
		}
		affected = append(affected, id)
	}

	incident, err := h.incidentService.CreateIncident(r.Context(), ports.CreateIncidentParams{
		OrgID:            orgID,
		Title:            req.Title,
		Description:      req.Description,
		Status:           domain.IncidentStatus(req.Status),
		AffectedServices: affected,
		InitialMessage:   req.InitialMessage,
		ActorID:          claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("incident created",
		"incident_id", incident.ID,
		"org_id", orgID,
		"user_id", claims.UserID,
	)

	WriteCreated(w, domain.NewIncidentSnapshot(incident))
}

// HandleGetIncident handles GET /incidents/{incidentID}
func (h *IncidentHandler) HandleGetIncident(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	incidentID, err := parseUUIDParam(r, "incidentID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	incident, err := h.incidentService.GetIncident(r.Context(), incidentID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, domain.NewIncidentSnapshot(incident))
}

// HandleAddUpdate handles POST /incidents/{incidentID}/updates
func (h *IncidentHandler) HandleAddUpdate(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	incidentID, err := parseUUIDParam(r, "incidentID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AddUpdateRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	incident, err := h.incidentService.AddIncidentUpdate(r.Context(), ports.AddIncidentUpdateParams{
		IncidentID: incidentID,
		Message:    req.Message,
		ActorID:    claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, domain.NewIncidentSnapshot(incident))
}

// HandleUpdateStatus handles PATCH /incidents/{incidentID}/status
func (h *IncidentHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	incidentID, err := parseUUIDParam(r, "incidentID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateIncidentStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	incident, err := h.incidentService.UpdateIncidentStatus(r.Context(), ports.UpdateIncidentStatusParams{
		IncidentID: incidentID,
		Status:     domain.IncidentStatus(req.Status),
		ActorID:    claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, domain.NewIncidentSnapshot(incident))
}

// HandleDeleteIncident handles DELETE /incidents/{incidentID}
func (h *IncidentHandler) HandleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	incidentID, err := parseUUIDParam(r, "incidentID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.incidentService.DeleteIncident(r.Context(), incidentID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("incident deleted", "incident_id", incidentID, "user_id", claims.UserID)

	WriteNoContent(w)
}
