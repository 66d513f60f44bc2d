package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

// OrganizationService implements business logic for organization management
type OrganizationService struct {
	orgRepo  ports.OrganizationRepository
	userRepo ports.UserRepository
}

var _ ports.OrganizationService = (*OrganizationService)(nil)

// NewOrganizationService creates a new organization service
func NewOrganizationService(orgRepo ports.OrganizationRepository, userRepo ports.UserRepository) *OrganizationService {
	return &OrganizationService{
		orgRepo:  orgRepo,
		userRepo: userRepo,
	}
}

// CreateOrganization creates an organization owned by the actor.
func (s *OrganizationService) CreateOrganization(ctx context.Context, params ports.CreateOrganizationParams) (*domain.Organization, error) {
	org, err := domain.NewOrganization(params.Name, params.Slug, params.ActorID)
	if err != nil {
		return nil, err
	}

	return s.orgRepo.Create(ctx, org)
}

// GetOrganization fetches an organization the viewer belongs to.
func (s *OrganizationService) GetOrganization(ctx context.Context, orgID, viewerID uuid.UUID) (*domain.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if !org.IsMember(viewerID) {
		return nil, apperrors.ErrNotMember
	}

	return org, nil
}

// ListOrganizations lists the organizations the viewer belongs to.
func (s *OrganizationService) ListOrganizations(ctx context.Context, viewerID uuid.UUID) ([]*domain.Organization, error) {
	return s.orgRepo.ListForUser(ctx, viewerID)
}

// UpdateOrganization renames an organization. Admin only.
func (s *OrganizationService) UpdateOrganization(ctx context.Context, params ports.UpdateOrganizationParams) (*domain.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, params.OrgID)
	if err != nil {
		return nil, err
	}

	if !org.CanManage(params.ActorID) {
		return nil, apperrors.ErrForbidden
	}

	if params.Name == "" {
		return nil, apperrors.ErrOrgNameRequired
	}
	org.Name = params.Name

	return s.orgRepo.Update(ctx, org)
}

// AddMember invites an existing account into the organization by email.
// Admin only. Re-inviting a member just updates their role.
func (s *OrganizationService) AddMember(ctx context.Context, params ports.AddMemberParams) error {
	org, err := s.orgRepo.GetByID(ctx, params.OrgID)
	if err != nil {
		return err
	}

	if !org.CanManage(params.ActorID) {
		return apperrors.ErrForbidden
	}

	role := params.Role
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "unknown member role")
	}

	user, err := s.userRepo.GetByEmail(ctx, params.Email)
	if err != nil {
		return err
	}

	return s.orgRepo.AddMember(ctx, params.OrgID, domain.OrganizationMember{
		UserID: user.ID,
		Role:   role,
	})
}

// RemoveMember removes a member from an organization. Admin only. The owner
// cannot be removed, and admins cannot remove themselves.
func (s *OrganizationService) RemoveMember(ctx context.Context, params ports.RemoveMemberParams) error {
	org, err := s.orgRepo.GetByID(ctx, params.OrgID)
	if err != nil {
		return err
	}

	if !org.CanManage(params.ActorID) {
		return apperrors.ErrForbidden
	}

	if params.UserID == org.OwnerID {
		return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "The organization owner cannot be removed")
	}
	if params.UserID == params.ActorID {
		return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Members cannot remove themselves")
	}
	if !org.IsMember(params.UserID) {
		return apperrors.NewNotFoundError(apperrors.ErrNotMember, "User is not a member of this organization")
	}

	return s.orgRepo.RemoveMember(ctx, params.OrgID, params.UserID)
}

// UpdateMemberRole changes a member's role. Admin only. The owner's role is
// fixed, and an admin who is not the owner cannot change their own role.
func (s *OrganizationService) UpdateMemberRole(ctx context.Context, params ports.UpdateMemberRoleParams) error {
	org, err := s.orgRepo.GetByID(ctx, params.OrgID)
	if err != nil {
		return err
	}

	if !org.CanManage(params.ActorID) {
		return apperrors.ErrForbidden
	}

	if params.Role != domain.RoleAdmin && params.Role != domain.RoleMember {
		return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "unknown member role")
	}
	if params.UserID == org.OwnerID {
		return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "The owner's role cannot be changed")
	}
	if params.UserID == params.ActorID && params.ActorID != org.OwnerID {
		return apperrors.NewForbiddenError("Admins cannot change their own role")
	}
	if !org.IsMember(params.UserID) {
		return apperrors.NewNotFoundError(apperrors.ErrNotMember, "User is not a member of this organization")
	}

	return s.orgRepo.UpdateMemberRole(ctx, params.OrgID, params.UserID, params.Role)
}

// DeleteOrganization removes an organization and everything under it.
// Admin only.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, orgID, actorID uuid.UUID) error {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return err
	}

	if !org.CanManage(actorID) {
		return apperrors.ErrForbidden
	}

	return s.orgRepo.Delete(ctx, orgID)
}
