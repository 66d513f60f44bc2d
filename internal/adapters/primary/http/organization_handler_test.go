package http

import (
	stdhttp "net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
)

func testOrg(t *testing.T, ownerID uuid.UUID) *domain.Organization {
	t.Helper()

	org, err := domain.NewOrganization("Acme", "acme", ownerID)
	require.NoError(t, err)
	org.ID = uuid.New()
	return org
}

func TestCreateOrganization(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	saved := testOrg(t, ownerID)

	env.orgRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Organization")).Return(saved, nil)

	recorder := env.do(t, stdhttp.MethodPost, "/api/v1/organizations", env.tokenFor(t, ownerID), CreateOrganizationRequest{
		Name: "Acme",
		Slug: "acme",
	})

	require.Equal(t, stdhttp.StatusCreated, recorder.Code)

	var response OrganizationDTO
	require.NoError(t, decodeJSON(recorder, &response))
	assert.Equal(t, saved.ID.String(), response.ID)
	assert.Equal(t, "acme", response.Slug)
	require.Len(t, response.Members, 1)
	assert.Equal(t, ownerID.String(), response.Members[0].UserID)
	assert.Equal(t, string(domain.RoleAdmin), response.Members[0].Role)
}

func TestCreateOrganization_InvalidSlug(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(t, stdhttp.MethodPost, "/api/v1/organizations", env.tokenFor(t, uuid.New()), CreateOrganizationRequest{
		Name: "Acme",
		Slug: "Not A Slug",
	})

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	env.orgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrganization_SlugTaken(t *testing.T) {
	env := newTestEnv(t)

	env.orgRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Organization")).
		Return(nil, apperrors.ErrSlugTaken)

	recorder := env.do(t, stdhttp.MethodPost, "/api/v1/organizations", env.tokenFor(t, uuid.New()), CreateOrganizationRequest{
		Name: "Acme",
		Slug: "acme",
	})

	require.Equal(t, stdhttp.StatusConflict, recorder.Code)
}

func TestListOrganizations_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(t, stdhttp.MethodGet, "/api/v1/organizations", "", nil)

	require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}

func TestGetOrganization_NonMember(t *testing.T) {
	env := newTestEnv(t)
	org := testOrg(t, uuid.New())
	outsiderID := uuid.New()

	env.orgRepo.On("GetByID", mock.Anything, org.ID).Return(org, nil)

	recorder := env.do(t, stdhttp.MethodGet, "/api/v1/organizations/"+org.ID.String(), env.tokenFor(t, outsiderID), nil)

	require.Equal(t, stdhttp.StatusForbidden, recorder.Code)
}

func TestGetOrganization_BadID(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(t, stdhttp.MethodGet, "/api/v1/organizations/not-a-uuid", env.tokenFor(t, uuid.New()), nil)

	require.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
}

func TestUpdateOrganization_MemberForbidden(t *testing.T) {
	env := newTestEnv(t)
	org := testOrg(t, uuid.New())
	memberID := uuid.New()
	org.Members = append(org.Members, domain.OrganizationMember{UserID: memberID, Role: domain.RoleMember})

	env.orgRepo.On("GetByID", mock.Anything, org.ID).Return(org, nil)

	recorder := env.do(t, stdhttp.MethodPatch, "/api/v1/organizations/"+org.ID.String(), env.tokenFor(t, memberID), UpdateOrganizationRequest{
		Name: "Acme Renamed",
	})

	require.Equal(t, stdhttp.StatusForbidden, recorder.Code)
	env.orgRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAddMember(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	org := testOrg(t, ownerID)
	invitee := testAccount(t, "invitee@example.com")

	env.orgRepo.On("GetByID", mock.Anything, org.ID).Return(org, nil)
	env.userRepo.On("GetByEmail", mock.Anything, "invitee@example.com").Return(invitee, nil)
	env.orgRepo.On("AddMember", mock.Anything, org.ID, domain.OrganizationMember{
		UserID: invitee.ID,
		Role:   domain.RoleMember,
	}).Return(nil)

	recorder := env.do(t, stdhttp.MethodPost, "/api/v1/organizations/"+org.ID.String()+"/members", env.tokenFor(t, ownerID), AddMemberRequest{
		Email: "invitee@example.com",
		Role:  "member",
	})

	require.Equal(t, stdhttp.StatusCreated, recorder.Code)
	env.orgRepo.AssertExpectations(t)
}

func TestRemoveMember(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	memberID := uuid.New()
	org := testOrg(t, ownerID)
	org.Members = append(org.Members, domain.OrganizationMember{UserID: memberID, Role: domain.RoleMember})

	env.orgRepo.On("GetByID", mock.Anything, org.ID).Return(org, nil)
	env.orgRepo.On("RemoveMember", mock.Anything, org.ID, memberID).Return(nil)

	recorder := env.do(t, stdhttp.MethodDelete,
		"/api/v1/organizations/"+org.ID.String()+"/members/"+memberID.String(),
		env.tokenFor(t, ownerID), nil)

	require.Equal(t, stdhttp.StatusNoContent, recorder.Code)
	env.orgRepo.AssertExpectations(t)
}

func TestRemoveMember_OwnerProtected(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	org := testOrg(t, ownerID)

	env.orgRepo.On("GetByID", mock.Anything, org.ID).Return(org, nil)

	recorder := env.do(t, stdhttp.MethodDelete,
		"/api/v1/organizations/"+org.ID.String()+"/members/"+ownerID.String(),
		env.tokenFor(t, ownerID), nil)

	require.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
	env.orgRepo.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveMember_NotAMember(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	org := testOrg(t, ownerID)

	env.orgRepo.On("GetByID", mock.Anything, org.ID).Return(org, nil)

	recorder := env.do(t, stdhttp.MethodDelete,
		"/api/v1/organizations/"+org.ID.String()+"/members/"+uuid.NewString(),
		env.tokenFor(t, ownerID), nil)

	require.Equal(t, stdhttp.StatusNotFound, recorder.Code)
}

func TestUpdateMemberRole(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	memberID := uuid.New()
	org := testOrg(t, ownerID)
	org.Members = append(org.Members, domain.OrganizationMember{UserID: memberID, Role: domain.RoleMember})

	env.orgRepo.On("GetByID", mock.Anything, org.ID).Return(org, nil)
	env.orgRepo.On("UpdateMemberRole", mock.Anything, org.ID, memberID, domain.RoleAdmin).Return(nil)

	recorder := env.do(t, stdhttp.MethodPatch,
		"/api/v1/organizations/"+org.ID.String()+"/members/"+memberID.String()+"/role",
		env.tokenFor(t, ownerID), UpdateMemberRoleRequest{Role: "admin"})

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	env.orgRepo.AssertExpectations(t)
}

func TestUpdateMemberRole_UnknownRole(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	org := testOrg(t, ownerID)

	recorder := env.do(t, stdhttp.MethodPatch,
		"/api/v1/organizations/"+org.ID.String()+"/members/"+uuid.NewString()+"/role",
		env.tokenFor(t, ownerID), UpdateMemberRoleRequest{Role: "superuser"})

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	env.orgRepo.AssertNotCalled(t, "UpdateMemberRole",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteOrganization(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	org := testOrg(t, ownerID)

	env.orgRepo.On("GetByID", mock.Anything, org.ID).Return(org, nil)
	env.orgRepo.On("Delete", mock.Anything, org.ID).Return(nil)

	recorder := env.do(t, stdhttp.MethodDelete, "/api/v1/organizations/"+org.ID.String(), env.tokenFor(t, ownerID), nil)

	require.Equal(t, stdhttp.StatusNoContent, recorder.Code)
	env.orgRepo.AssertExpectations(t)
}
