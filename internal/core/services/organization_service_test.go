package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
	"github.com/raviro/statuspage-backend/internal/core/mocks"
	"github.com/raviro/statuspage-backend/internal/core/ports"
	"github.com/raviro/statuspage-backend/internal/core/services"
)

func TestOrganizationService_CreateOrganization(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("success", func(t *testing.T) {
		mockOrgs := mocks.NewMockOrganizationRepository()
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewOrganizationService(mockOrgs, mockUsers)

		mockOrgs.On("Create", ctx, mock.MatchedBy(func(o *domain.Organization) bool {
			// The creator is written as the admin owner.
			return o.OwnerID == actorID && o.CanManage(actorID)
		})).Return(&domain.Organization{ID: uuid.New(), Name: "Acme", Slug: "acme"}, nil)

		org, err := svc.CreateOrganization(ctx, ports.CreateOrganizationParams{
			Name:    "Acme",
			Slug:    "acme",
			ActorID: actorID,
		})

		require.NoError(t, err)
		assert.Equal(t, "acme", org.Slug)
		mockOrgs.AssertExpectations(t)
	})

	t.Run("invalid slug", func(t *testing.T) {
		mockOrgs := mocks.NewMockOrganizationRepository()
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewOrganizationService(mockOrgs, mockUsers)

		_, err := svc.CreateOrganization(ctx, ports.CreateOrganizationParams{
			Name:    "Acme",
			Slug:    "Not A Slug!",
			ActorID: actorID,
		})

		assert.ErrorIs(t, err, apperrors.ErrSlugInvalid)
		mockOrgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestOrganizationService_GetOrganization(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	mockOrgs := mocks.NewMockOrganizationRepository()
	mockUsers := mocks.NewMockUserRepository()
	svc := services.NewOrganizationService(mockOrgs, mockUsers)

	org := memberOrg(uuid.New())
	mockOrgs.On("GetByID", ctx, org.ID).Return(org, nil)

	_, err := svc.GetOrganization(ctx, org.ID, actorID)
	assert.ErrorIs(t, err, apperrors.ErrNotMember)
}

func TestOrganizationService_UpdateOrganization(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("admin can rename", func(t *testing.T) {
		mockOrgs := mocks.NewMockOrganizationRepository()
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewOrganizationService(mockOrgs, mockUsers)

		org := memberOrg(ownerID)
		mockOrgs.On("GetByID", ctx, org.ID).Return(org, nil)
		mockOrgs.On("Update", ctx, mock.MatchedBy(func(o *domain.Organization) bool {
			return o.Name == "Acme Inc"
		})).Return(org, nil)

		_, err := svc.UpdateOrganization(ctx, ports.UpdateOrganizationParams{
			OrgID:   org.ID,
			Name:    "Acme Inc",
			ActorID: ownerID,
		})

		require.NoError(t, err)
		mockOrgs.AssertExpectations(t)
	})

	t.Run("plain member cannot rename", func(t *testing.T) {
		mockOrgs := mocks.NewMockOrganizationRepository()
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewOrganizationService(mockOrgs, mockUsers)

		memberID := uuid.New()
		org := memberOrg(ownerID)
		org.Members = append(org.Members, domain.OrganizationMember{
			UserID: memberID,
			Role:   domain.RoleMember,
		})
		mockOrgs.On("GetByID", ctx, org.ID).Return(org, nil)

		_, err := svc.UpdateOrganization(ctx, ports.UpdateOrganizationParams{
			OrgID:   org.ID,
			Name:    "Acme Inc",
			ActorID: memberID,
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockOrgs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestOrganizationService_AddMember(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("admin invites by email", func(t *testing.T) {
		mockOrgs := mocks.NewMockOrganizationRepository()
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewOrganizationService(mockOrgs, mockUsers)

		org := memberOrg(ownerID)
		invitee := &domain.User{ID: uuid.New(), Email: "new@example.com"}

		mockOrgs.On("GetByID", ctx, org.ID).Return(org, nil)
		mockUsers.On("GetByEmail", ctx, "new@example.com").Return(invitee, nil)
		mockOrgs.On("AddMember", ctx, org.ID, domain.OrganizationMember{
			UserID: invitee.ID,
			Role:   domain.RoleMember,
		}).Return(nil)

		err := svc.AddMember(ctx, ports.AddMemberParams{
			OrgID:   org.ID,
			Email:   "new@example.com",
			ActorID: ownerID,
		})

		require.NoError(t, err)
		mockOrgs.AssertExpectations(t)
	})

	t.Run("plain member cannot invite", func(t *testing.T) {
		mockOrgs := mocks.NewMockOrganizationRepository()
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewOrganizationService(mockOrgs, mockUsers)

		memberID := uuid.New()
		org := memberOrg(ownerID)
		org.Members = append(org.Members, domain.OrganizationMember{
			UserID: memberID,
			Role:   domain.RoleMember,
		})
		mockOrgs.On("GetByID", ctx, org.ID).Return(org, nil)

		err := svc.AddMember(ctx, ports.AddMemberParams{
			OrgID:   org.ID,
			Email:   "new@example.com",
			ActorID: memberID,
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockUsers.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})
}

func TestOrganizationService_RemoveMember(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	memberID := uuid.New()

	setup := func() (*mocks.MockOrganizationRepository, *services.OrganizationService, *domain.Organization) {
		mockOrgs := mocks.NewMockOrganizationRepository()
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewOrganizationService(mockOrgs, mockUsers)

		org := memberOrg(ownerID)
		org.Members = append(org.Members, domain.OrganizationMember{
			UserID: memberID,
			Role:   domain.RoleMember,
		})
		mockOrgs.On("GetByID", ctx, org.ID).Return(org, nil)
		return mockOrgs, svc, org
	}

	t.Run("owner removes a member", func(t *testing.T) {
		mockOrgs, svc, org := setup()
		mockOrgs.On("RemoveMember", ctx, org.ID, memberID).Return(nil)

		err := svc.RemoveMember(ctx, ports.RemoveMemberParams{
			OrgID:   org.ID,
			UserID:  memberID,
			ActorID: ownerID,
		})

		require.NoError(t, err)
		mockOrgs.AssertExpectations(t)
	})

	t.Run("plain member cannot remove anyone", func(t *testing.T) {
		mockOrgs, svc, org := setup()

		err := svc.RemoveMember(ctx, ports.RemoveMemberParams{
			OrgID:   org.ID,
			UserID:  ownerID,
			ActorID: memberID,
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockOrgs.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("the owner cannot be removed", func(t *testing.T) {
		mockOrgs, svc, org := setup()

		err := svc.RemoveMember(ctx, ports.RemoveMemberParams{
			OrgID:   org.ID,
			UserID:  ownerID,
			ActorID: ownerID,
		})

		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		mockOrgs.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admins cannot remove themselves", func(t *testing.T) {
		mockOrgs, svc, org := setup()
		adminID := uuid.New()
		org.Members = append(org.Members, domain.OrganizationMember{
			UserID: adminID,
			Role:   domain.RoleAdmin,
		})

		err := svc.RemoveMember(ctx, ports.RemoveMemberParams{
			OrgID:   org.ID,
			UserID:  adminID,
			ActorID: adminID,
		})

		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		mockOrgs.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("removing a non-member is not found", func(t *testing.T) {
		_, svc, org := setup()

		err := svc.RemoveMember(ctx, ports.RemoveMemberParams{
			OrgID:   org.ID,
			UserID:  uuid.New(),
			ActorID: ownerID,
		})

		assert.ErrorIs(t, err, apperrors.ErrNotMember)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 404, appErr.StatusCode)
	})
}

func TestOrganizationService_UpdateMemberRole(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	memberID := uuid.New()

	setup := func() (*mocks.MockOrganizationRepository, *services.OrganizationService, *domain.Organization) {
		mockOrgs := mocks.NewMockOrganizationRepository()
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewOrganizationService(mockOrgs, mockUsers)

		org := memberOrg(ownerID)
		org.Members = append(org.Members, domain.OrganizationMember{
			UserID: memberID,
			Role:   domain.RoleMember,
		})
		mockOrgs.On("GetByID", ctx, org.ID).Return(org, nil)
		return mockOrgs, svc, org
	}

	t.Run("owner promotes a member to admin", func(t *testing.T) {
		mockOrgs, svc, org := setup()
		mockOrgs.On("UpdateMemberRole", ctx, org.ID, memberID, domain.RoleAdmin).Return(nil)

		err := svc.UpdateMemberRole(ctx, ports.UpdateMemberRoleParams{
			OrgID:   org.ID,
			UserID:  memberID,
			Role:    domain.RoleAdmin,
			ActorID: ownerID,
		})

		require.NoError(t, err)
		mockOrgs.AssertExpectations(t)
	})

	t.Run("the owner's role is fixed", func(t *testing.T) {
		mockOrgs, svc, org := setup()

		err := svc.UpdateMemberRole(ctx, ports.UpdateMemberRoleParams{
			OrgID:   org.ID,
			UserID:  ownerID,
			Role:    domain.RoleMember,
			ActorID: ownerID,
		})

		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		mockOrgs.AssertNotCalled(t, "UpdateMemberRole",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin cannot change their own role", func(t *testing.T) {
		mockOrgs, svc, org := setup()
		adminID := uuid.New()
		org.Members = append(org.Members, domain.OrganizationMember{
			UserID: adminID,
			Role:   domain.RoleAdmin,
		})

		err := svc.UpdateMemberRole(ctx, ports.UpdateMemberRoleParams{
			OrgID:   org.ID,
			UserID:  adminID,
			Role:    domain.RoleMember,
			ActorID: adminID,
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockOrgs.AssertNotCalled(t, "UpdateMemberRole",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, svc, org := setup()

		err := svc.UpdateMemberRole(ctx, ports.UpdateMemberRoleParams{
			OrgID:   org.ID,
			UserID:  memberID,
			Role:    "superuser",
			ActorID: ownerID,
		})

		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})

	t.Run("unknown member is not found", func(t *testing.T) {
		_, svc, org := setup()

		err := svc.UpdateMemberRole(ctx, ports.UpdateMemberRoleParams{
			OrgID:   org.ID,
			UserID:  uuid.New(),
			Role:    domain.RoleAdmin,
			ActorID: ownerID,
		})

		assert.ErrorIs(t, err, apperrors.ErrNotMember)
	})
}

func TestOrganizationService_DeleteOrganization(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	mockOrgs := mocks.NewMockOrganizationRepository()
	mockUsers := mocks.NewMockUserRepository()
	svc := services.NewOrganizationService(mockOrgs, mockUsers)

	org := memberOrg(ownerID)
	mockOrgs.On("GetByID", ctx, org.ID).Return(org, nil)
	mockOrgs.On("Delete", ctx, org.ID).Return(nil)

	require.NoError(t, svc.DeleteOrganization(ctx, org.ID, ownerID))
	mockOrgs.AssertExpectations(t)
}
