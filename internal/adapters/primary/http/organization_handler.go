package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/raviro/statuspage-backend/internal/adapters/primary/validation"
	"github.com/raviro/statuspage-backend/internal/core/domain"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

// OrganizationHandler handles HTTP requests for organizations
type OrganizationHandler struct {
	orgService      ports.OrganizationService
	serviceHandler  *ServiceHandler
	incidentHandler *IncidentHandler
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(
	orgService ports.OrganizationService,
	serviceHandler *ServiceHandler,
	incidentHandler *IncidentHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:      orgService,
		serviceHandler:  serviceHandler,
		incidentHandler: incidentHandler,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "organization"),
	}
}

// RegisterRoutes sets up the routing for all organization endpoints.
func (h *OrganizationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListOrganizations)
	r.Post("/", h.HandleCreateOrganization)

	r.Route("/{orgID}", func(r chi.Router) {
		r.Get("/", h.HandleGetOrganization)
		r.Patch("/", h.HandleUpdateOrganization)
		r.Delete("/", h.HandleDeleteOrganization)
		r.Route("/members", func(r chi.Router) {
			r.Post("/", h.HandleAddMember)
			r.Delete("/{userID}", h.HandleRemoveMember)
			r.Patch("/{userID}/role", h.HandleUpdateMemberRole)
		})

		if h.serviceHandler != nil {
			r.Get("/services", h.serviceHandler.HandleListServices)
			r.Post("/services", h.serviceHandler.HandleCreateService)
		}
		if h.incidentHandler != nil {
			r.Get("/incidents", h.incidentHandler.HandleListIncidents)
			r.Post("/incidents", h.incidentHandler.HandleCreateIncident)
		}
	})
}

// CreateOrganizationRequest defines the expected JSON body for creating an
// organization
type CreateOrganizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Validate validates the create organization request
func (r *CreateOrganizationRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxOrgNameLength)

	v.Required("slug", r.Slug).
		Slug("slug", r.Slug)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateOrganizationRequest defines the expected JSON body for renaming
type UpdateOrganizationRequest struct {
	Name string `json:"name"`
}

// Validate validates the update organization request
func (r *UpdateOrganizationRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxOrgNameLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AddMemberRequest defines the expected JSON body for inviting a member
type AddMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Validate validates the add member request
func (r *AddMemberRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("email", r.Email).
		Email("email", r.Email)

	v.OneOf("role", r.Role, []string{string(domain.RoleAdmin), string(domain.RoleMember)})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateMemberRoleRequest defines the expected JSON body for changing a
// member's role
type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// Validate validates the update member role request
func (r *UpdateMemberRoleRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("role", r.Role).
		OneOf("role", r.Role, []string{string(domain.RoleAdmin), string(domain.RoleMember)})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// MemberDTO defines the JSON response for memberships.
type MemberDTO struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// OrganizationDTO defines the JSON response for organizations.
type OrganizationDTO struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug"`
	OwnerID   string      `json:"ownerId"`
	Members   []MemberDTO `json:"members"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt *string     `json:"updatedAt"`
}

func toOrganizationDTO(org *domain.Organization) OrganizationDTO {
	members := make([]MemberDTO, 0, len(org.Members))
	for _, m := range org.Members {
		members = append(members, MemberDTO{
			UserID: m.UserID.String(),
			Role:   string(m.Role),
		})
	}

	var updatedAt *string
	if org.UpdatedAt != nil {
		value := org.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	return OrganizationDTO{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		OwnerID:   org.OwnerID.String(),
		Members:   members,
		CreatedAt: org.CreatedAt.Format(time.RFC3339),
		UpdatedAt: updatedAt,
	}
}

func toOrganizationDTOs(orgs []*domain.Organization) []OrganizationDTO {
	response := make([]OrganizationDTO, 0, len(orgs))
	for _, org := range orgs {
		response = append(response, toOrganizationDTO(org))
	}
	return response
}

// HandleListOrganizations handles GET /organizations
func (h *OrganizationHandler) HandleListOrganizations(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgs, err := h.orgService.ListOrganizations(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toOrganizationDTOs(orgs))
}

// HandleCreateOrganization handles POST /organizations
func (h *OrganizationHandler) HandleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateOrganizationRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	org, err := h.orgService.CreateOrganization(r.Context(), ports.CreateOrganizationParams{
		Name:    req.Name,
		Slug:    req.Slug,
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("organization created",
		"org_id", org.ID,
		"slug", org.Slug,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toOrganizationDTO(org))
}

// HandleGetOrganization handles GET /organizations/{orgID}
func (h *OrganizationHandler) HandleGetOrganization(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	org, err := h.orgService.GetOrganization(r.Context(), orgID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toOrganizationDTO(org))
}

// HandleUpdateOrganization handles PATCH /organizations/{orgID}
func (h *OrganizationHandler) HandleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateOrganizationRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	org, err := h.orgService.UpdateOrganization(r.Context(), ports.UpdateOrganizationParams{
		OrgID:   orgID,
		Name:    req.Name,
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toOrganizationDTO(org))
}

// HandleDeleteOrganization handles DELETE /organizations/{orgID}
func (h *OrganizationHandler) HandleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.orgService.DeleteOrganization(r.Context(), orgID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("organization deleted", "org_id", orgID, "user_id", claims.UserID)

	WriteNoContent(w)
}

// HandleAddMember handles POST /organizations/{orgID}/members
func (h *OrganizationHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AddMemberRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	err = h.orgService.AddMember(r.Context(), ports.AddMemberParams{
		OrgID:   orgID,
		Email:   req.Email,
		Role:    domain.MemberRole(req.Role),
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, SuccessResponse{Message: "Member added"})
}

// HandleRemoveMember handles DELETE /organizations/{orgID}/members/{userID}
func (h *OrganizationHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	err = h.orgService.RemoveMember(r.Context(), ports.RemoveMemberParams{
		OrgID:   orgID,
		UserID:  userID,
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("member removed",
		"org_id", orgID,
		"removed_user_id", userID,
		"user_id", claims.UserID,
	)

	WriteNoContent(w)
}

// HandleUpdateMemberRole handles PATCH /organizations/{orgID}/members/{userID}/role
func (h *OrganizationHandler) HandleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgID, err := parseUUIDParam(r, "orgID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateMemberRoleRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	err = h.orgService.UpdateMemberRole(r.Context(), ports.UpdateMemberRoleParams{
		OrgID:   orgID,
		UserID:  userID,
		Role:    domain.MemberRole(req.Role),
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, SuccessResponse{Message: "Member role updated"})
}
