package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
)

const MaxOrgNameLength = 255

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// MemberRole is a user's role within an organization.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// OrganizationMember links a user to an organization with a role.
type OrganizationMember struct {
	UserID uuid.UUID
	Role   MemberRole
}

// Organization owns services and incidents. Its slug is the public status
// page URL segment and the key viewers use to locate it.
type Organization struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	OwnerID   uuid.UUID
	Members   []OrganizationMember
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// NewOrganization creates a valid organization owned by ownerID. The owner is
// always an admin member.
func NewOrganization(name, slug string, ownerID uuid.UUID) (*Organization, error) {
	if name == "" {
		return nil, apperrors.ErrOrgNameRequired
	}
	if len(name) > MaxOrgNameLength {
		return nil, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "organization name is too long")
	}
	if slug == "" {
		return nil, apperrors.ErrSlugRequired
	}
	if !slugPattern.MatchString(slug) {
		return nil, apperrors.ErrSlugInvalid
	}

	return &Organization{
		Name:      name,
		Slug:      slug,
		OwnerID:   ownerID,
		Members:   []OrganizationMember{{UserID: ownerID, Role: RoleAdmin}},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// RoleOf returns the member's role. The owner is always an admin.
func (o *Organization) RoleOf(userID uuid.UUID) (MemberRole, bool) {
	if o.OwnerID == userID {
		return RoleAdmin, true
	}
	for _, m := range o.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// CanManage reports whether the user may mutate this organization's data
// (services, incidents, the organization itself).
func (o *Organization) CanManage(userID uuid.UUID) bool {
	role, ok := o.RoleOf(userID)
	return ok && role == RoleAdmin
}

// IsMember reports whether the user belongs to this organization at all.
func (o *Organization) IsMember(userID uuid.UUID) bool {
	_, ok := o.RoleOf(userID)
	return ok
}
