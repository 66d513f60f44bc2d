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

type ServiceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ServiceRepository = (*ServiceRepository)(nil)

func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

func (r *ServiceRepository) Create(ctx context.Context, service *domain.Service) (*domain.Service, error) {
	const query = `
		INSERT INTO services (organization_id, name, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	created := *service
	err := r.pool.QueryRow(ctx, query,
		service.OrganizationID, service.Name, service.Description, service.Status,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	const query = `
		SELECT id, organization_id, name, description, status, created_at, updated_at
		FROM services
		WHERE id = $1`

	service := &domain.Service{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&service.ID,
		&service.OrganizationID,
		&service.Name,
		&service.Description,
		&service.Status,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrServiceNotFound
		}
		return nil, err
	}

	return service, nil
}

func (r *ServiceRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*domain.Service, error) {
	const query = `
		SELECT id, organization_id, name, description, status, created_at, updated_at
		FROM services
		WHERE organization_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*domain.Service
	for rows.Next() {
		service := &domain.Service{}
		err := rows.Scan(
			&service.ID,
			&service.OrganizationID,
			&service.Name,
			&service.Description,
			&service.Status,
			&service.CreatedAt,
			&service.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}

	return services, rows.Err()
}

func (r *ServiceRepository) Update(ctx context.Context, service *domain.Service) (*domain.Service, error) {
	const query = `
		UPDATE services
		SET name = $2, description = $3, status = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	updated := *service
	err := r.pool.QueryRow(ctx, query,
		service.ID, service.Name, service.Description, service.Status,
	).Scan(&updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrServiceNotFound
		}
		return nil, err
	}

	return &updated, nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrServiceNotFound
	}
	return nil
}
