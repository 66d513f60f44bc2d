package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

type OrganizationRepository struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
}

var _ ports.OrganizationRepository = (*OrganizationRepository)(nil)

func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{
		pool: pool,
		tm:   NewTransactionManager(pool),
	}
}

// Create inserts the organization and its initial membership rows in one
// transaction so an organization is never visible without its owner.
func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	const orgQuery = `
		INSERT INTO organizations (name, slug, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	const memberQuery = `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)`

	created := *org
	err := r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, orgQuery, org.Name, org.Slug, org.OwnerID).
			Scan(&created.ID, &created.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.ErrSlugTaken
			}
			return err
		}

		for _, m := range org.Members {
			if _, err := tx.Exec(ctx, memberQuery, created.ID, m.UserID, m.Role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	const query = `
		SELECT id, name, slug, owner_id, created_at, updated_at
		FROM organizations
		WHERE id = $1`

	return r.fetchOrganization(ctx, query, id)
}

func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	const query = `
		SELECT id, name, slug, owner_id, created_at, updated_at
		FROM organizations
		WHERE slug = $1`

	return r.fetchOrganization(ctx, query, slug)
}

func (r *OrganizationRepository) fetchOrganization(ctx context.Context, query string, arg any) (*domain.Organization, error) {
	org := &domain.Organization{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.OwnerID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrganizationNotFound
		}
		return nil, err
	}

	members, err := r.loadMembers(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	org.Members = members

	return org, nil
}

func (r *OrganizationRepository) loadMembers(ctx context.Context, orgID uuid.UUID) ([]domain.OrganizationMember, error) {
	const query = `
		SELECT user_id, role
		FROM organization_members
		WHERE organization_id = $1
		ORDER BY joined_at`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.OrganizationMember
	for rows.Next() {
		var m domain.OrganizationMember
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *OrganizationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Organization, error) {
	const query = `
		SELECT o.id, o.name, o.slug, o.owner_id, o.created_at, o.updated_at
		FROM organizations o
		JOIN organization_members m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*domain.Organization
	for rows.Next() {
		org := &domain.Organization{}
		err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, org := range orgs {
		members, err := r.loadMembers(ctx, org.ID)
		if err != nil {
			return nil, err
		}
		org.Members = members
	}

	return orgs, nil
}

func (r *OrganizationRepository) Update(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	const query = `
		UPDATE organizations
		SET name = $2, slug = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	updated := *org
	err := r.pool.QueryRow(ctx, query, org.ID, org.Name, org.Slug).Scan(&updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrganizationNotFound
		}
		if isUniqueViolation(err) {
			return nil, apperrors.ErrSlugTaken
		}
		return nil, err
	}

	return &updated, nil
}

func (r *OrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrOrganizationNotFound
	}
	return nil
}

// AddMember inserts or updates a membership. Re-adding an existing member
// just refreshes their role.
func (r *OrganizationRepository) AddMember(ctx context.Context, orgID uuid.UUID, member domain.OrganizationMember) error {
	const query = `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, user_id) DO UPDATE SET role = EXCLUDED.role`

	_, err := r.pool.Exec(ctx, query, orgID, member.UserID, member.Role)
	return err
}

func (r *OrganizationRepository) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	const query = `
		DELETE FROM organization_members
		WHERE organization_id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, orgID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotMember
	}
	return nil
}

func (r *OrganizationRepository) UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role domain.MemberRole) error {
	const query = `
		UPDATE organization_members
		SET role = $3
		WHERE organization_id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, orgID, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotMember
	}
	return nil
}
