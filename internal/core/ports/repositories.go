package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/raviro/statuspage-backend/internal/core/domain"
)

// UserRepository persists dashboard accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// OrganizationRepository persists organizations and their memberships.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Organization, error)
	Update(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, orgID uuid.UUID, member domain.OrganizationMember) error
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error
	UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role domain.MemberRole) error
}

// ServiceRepository persists monitored services.
type ServiceRepository interface {
	Create(ctx context.Context, service *domain.Service) (*domain.Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*domain.Service, error)
	Update(ctx context.Context, service *domain.Service) (*domain.Service, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// IncidentRepository persists incidents with their embedded timelines.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) (*domain.Incident, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*domain.Incident, error)
	Update(ctx context.Context, incident *domain.Incident) (*domain.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
