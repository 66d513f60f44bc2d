package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/raviro/statuspage-backend/internal/core/domain"
)

// EventBroadcaster is the publish side of the real-time fan-out. Broadcast is
// called by the mutation path strictly after the corresponding store write has
// committed; it must never block on slow consumers. Delivery is best-effort,
// at-most-once per live connection.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, fullName, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// CreateOrganizationParams defines the input for creating an organization.
type CreateOrganizationParams struct {
	Name    string
	Slug    string
	ActorID uuid.UUID
}

// UpdateOrganizationParams defines the input for renaming an organization.
type UpdateOrganizationParams struct {
	OrgID   uuid.UUID
	Name    string
	ActorID uuid.UUID
}

// AddMemberParams defines the input for inviting a user to an organization
// by email.
type AddMemberParams struct {
	OrgID   uuid.UUID
	Email   string
	Role    domain.MemberRole
	ActorID uuid.UUID
}

// RemoveMemberParams defines the input for removing a member.
type RemoveMemberParams struct {
	OrgID   uuid.UUID
	UserID  uuid.UUID
	ActorID uuid.UUID
}

// UpdateMemberRoleParams defines the input for changing a member's role.
type UpdateMemberRoleParams struct {
	OrgID   uuid.UUID
	UserID  uuid.UUID
	Role    domain.MemberRole
	ActorID uuid.UUID
}

// OrganizationService defines the port for organization management.
type OrganizationService interface {
	CreateOrganization(ctx context.Context, params CreateOrganizationParams) (*domain.Organization, error)
	GetOrganization(ctx context.Context, orgID, viewerID uuid.UUID) (*domain.Organization, error)
	ListOrganizations(ctx context.Context, viewerID uuid.UUID) ([]*domain.Organization, error)
	UpdateOrganization(ctx context.Context, params UpdateOrganizationParams) (*domain.Organization, error)
	DeleteOrganization(ctx context.Context, orgID, actorID uuid.UUID) error
	AddMember(ctx context.Context, params AddMemberParams) error
	RemoveMember(ctx context.Context, params RemoveMemberParams) error
	UpdateMemberRole(ctx context.Context, params UpdateMemberRoleParams) error
}

// CreateServiceParams defines the input for creating a service.
type CreateServiceParams struct {
	OrgID       uuid.UUID
	Name        string
	Description string
	Status      domain.ServiceStatus
	ActorID     uuid.UUID
}

// UpdateServiceParams defines the input for updating a service. Nil fields
// are left unchanged.
type UpdateServiceParams struct {
	ServiceID   uuid.UUID
	Name        *string
	Description *string
	Status      *domain.ServiceStatus
	ActorID     uuid.UUID
}

// StatusService defines the port for managing the monitored services shown on
// a status page.
type StatusService interface {
	CreateService(ctx context.Context, params CreateServiceParams) (*domain.Service, error)
	GetService(ctx context.Context, serviceID, viewerID uuid.UUID) (*domain.Service, error)
	ListServices(ctx context.Context, orgID, viewerID uuid.UUID) ([]*domain.Service, error)
	UpdateService(ctx context.Context, params UpdateServiceParams) (*domain.Service, error)
	DeleteService(ctx context.Context, serviceID, actorID uuid.UUID) error
	Shutdown()
}

// CreateIncidentParams defines the input for opening an incident.
type CreateIncidentParams struct {
	OrgID            uuid.UUID
	Title            string
	Description      string
	Status           domain.IncidentStatus
	AffectedServices []uuid.UUID
	InitialMessage   string
	ActorID          uuid.UUID
}

// AddIncidentUpdateParams defines the input for appending a timeline entry.
type AddIncidentUpdateParams struct {
	IncidentID uuid.UUID
	Message    string
	ActorID    uuid.UUID
}

// UpdateIncidentStatusParams defines the input for moving an incident through
// its lifecycle.
type UpdateIncidentStatusParams struct {
	IncidentID uuid.UUID
	Status     domain.IncidentStatus
	ActorID    uuid.UUID
}

// IncidentService defines the port for incident management.
type IncidentService interface {
	CreateIncident(ctx context.Context, params CreateIncidentParams) (*domain.Incident, error)
	GetIncident(ctx context.Context, incidentID, viewerID uuid.UUID) (*domain.Incident, error)
	ListIncidents(ctx context.Context, orgID, viewerID uuid.UUID) ([]*domain.Incident, error)
	AddIncidentUpdate(ctx context.Context, params AddIncidentUpdateParams) (*domain.Incident, error)
	UpdateIncidentStatus(ctx context.Context, params UpdateIncidentStatusParams) (*domain.Incident, error)
	DeleteIncident(ctx context.Context, incidentID, actorID uuid.UUID) error
	Shutdown()
}

// NotificationParams defines the input for sending a notification email.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
	OrganizationID  uuid.UUID
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// StatusPageService assembles the public snapshot a status page hydrates from
// before applying real-time events.
type StatusPageService interface {
	GetPublicSnapshot(ctx context.Context, slug string) (*domain.StatusSnapshot, error)
}
