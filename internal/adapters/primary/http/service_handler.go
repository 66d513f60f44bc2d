package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raviro/statuspage-backend/internal/adapters/primary/validation"
	"github.com/raviro/statuspage-backend/internal/core/domain"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

var serviceStatusValues = []string{
	string(domain.StatusOperational),
	string(domain.StatusDegraded),
	string(domain.StatusPartialOutage),
	string(domain.StatusMajorOutage),
	string(domain.StatusUnderMaintenance),
}

// ServiceHandler handles HTTP requests for monitored services
type ServiceHandler struct {
	statusService ports.StatusService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(
	statusService ports.StatusService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ServiceHandler {
	return &ServiceHandler{
		statusService: statusService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "service"),
	}
}

// RegisterRoutes sets up routing for single-service endpoints. List and
// create live under /organizations/{orgID}/services.
func (h *ServiceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{serviceID}", func(r chi.Router) {
		r.Get("/", h.HandleGetService)
		r.Patch("/", h.HandleUpdateService)
		r.Delete("/", h.HandleDeleteService)
	})
}

// CreateServiceRequest defines the expected JSON body for creating a service
type CreateServiceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Validate validates the create service request
func (r *CreateServiceRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxServiceNameLength)

	v.MaxLength("description", r.Description, domain.MaxDescriptionLength)

	v.OneOf("status", r.Status, serviceStatusValues)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateServiceRequest defines the expected JSON body for a partial service
// update. Absent fields are left unchanged.
type UpdateServiceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Validate validates the update service request
func (r *UpdateServiceRequest) Validate() error {
	v := validation.NewValidator()

	if r.Name != nil {
		v.Required("name", *r.Name).
			MaxLength("name", *r.Name, domain.MaxServiceNameLength)
	}
	if r.Description != nil {
		v.MaxLength("description", *r.Description, domain.MaxDescriptionLength)
	}
	if r.Status != nil {
		v.OneOf("status", *r.Status, serviceStatusValues)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ServiceDTO defines the JSON response for services. It matches the shape
// embedded in service_created events.
type ServiceDTO = domain.ServiceSnapshot

func toServiceDTOs(services []*domain.Service) []ServiceDTO {
	response := make([]ServiceDTO, 0, len(services))
	for _, service := range services {
		response = append(response, domain.NewServiceSnapshot(service))
	}
	return response
}

// HandleListServices handles GET /organizations/{orgID}/services
func (h *ServiceHandler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	services, err := h.statusService.ListServices(r.Context(), orgID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toServiceDTOs(services))
}

// HandleCreateService handles POST /organizations/{orgID}/services
func (h *ServiceHandler) HandleCreateService(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[CreateServiceRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	service, err := h.statusService.CreateService(r.Context(), ports.CreateServiceParams{
		OrgID:       orgID,
		Name:        req.Name,
		Description: req.Description,
		Status:      domain.ServiceStatus(req.Status),
		ActorID:     claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("service created",
		"service_id", service.ID,
		"org_id", orgID,
		"user_id", claims.UserID,
	)

	WriteCreated(w, domain.NewServiceSnapshot(service))
}

// HandleGetService handles GET /services/{serviceID}
func (h *ServiceHandler) HandleGetService(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	serviceID, err := parseUUIDParam(r, "serviceID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	service, err := h.statusService.GetService(r.Context(), serviceID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, domain.NewServiceSnapshot(service))
}

// HandleUpdateService handles PATCH /services/{serviceID}
func (h *ServiceHandler) HandleUpdateService(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	serviceID, err := parseUUIDParam(r, "serviceID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateServiceRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateServiceParams{
		ServiceID:   serviceID,
		Name:        req.Name,
		Description: req.Description,
		ActorID:     claims.UserID,
	}
	if req.Status != nil {
		status := domain.ServiceStatus(*req.Status)
		params.Status = &status
	}

	service, err := h.statusService.UpdateService(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, domain.NewServiceSnapshot(service))
}

// HandleDeleteService handles DELETE /services/{serviceID}
func (h *ServiceHandler) HandleDeleteService(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	serviceID, err := parseUUIDParam(r, "serviceID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.statusService.DeleteService(r.Context(), serviceID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("service deleted", "service_id", serviceID, "user_id", claims.UserID)

	WriteNoContent(w)
}
