package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

type IncidentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.IncidentRepository = (*IncidentRepository)(nil)

func NewIncidentRepository(pool *pgxpool.Pool) *IncidentRepository {
	return &IncidentRepository{pool: pool}
}

// dbIncidentUpdate is the jsonb representation of a timeline entry.
type dbIncidentUpdate struct {
	Message    string     `json:"message"`
	PostedByID *uuid.UUID `json:"postedById,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

func marshalUpdates(updates []domain.IncidentUpdate) ([]byte, error) {
	rows := make([]dbIncidentUpdate, 0, len(updates))
	for _, u := range updates {
		rows = append(rows, dbIncidentUpdate{
			Message:    u.Message,
			PostedByID: u.PostedByID,
			Timestamp:  u.Timestamp,
		})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode incident updates: %w", err)
	}
	return data, nil
}

func unmarshalUpdates(data []byte) ([]domain.IncidentUpdate, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var rows []dbIncidentUpdate
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode incident updates: %w", err)
	}

	updates := make([]domain.IncidentUpdate, 0, len(rows))
	for _, r := range rows {
		updates = append(updates, domain.IncidentUpdate{
			Message:    r.Message,
			PostedByID: r.PostedByID,
			Timestamp:  r.Timestamp,
		})
	}
	return updates, nil
}

func (r *IncidentRepository) Create(ctx context.Context, incident *domain.Incident) (*domain.Incident, error) {
	const query = `
		INSERT INTO incidents (organization_id, title, description, status, affected_services, updates)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	updatesJSON, err := marshalUpdates(incident.Updates)
	if err != nil {
		return nil, err
	}

	affected := incident.AffectedServices
	if affected == nil {
		affected = []uuid.UUID{}
	}

	created := *incident
	err = r.pool.QueryRow(ctx, query,
		incident.OrganizationID,
		incident.Title,
		incident.Description,
		incident.Status,
		affected,
		updatesJSON,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	const query = `
		SELECT id, organization_id, title, description, status, affected_services, updates, created_at, updated_at
		FROM incidents
		WHERE id = $1`

	incident, err := r.scanIncident(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIncidentNotFound
		}
		return nil, err
	}

	return incident, nil
}

func (r *IncidentRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*domain.Incident, error) {
	const query = `
		SELECT id, organization_id, title, description, status, affected_services, updates, created_at, updated_at
		FROM incidents
		WHERE organization_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []*domain.Incident
	for rows.Next() {
		incident, err := r.scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, incident)
	}

	return incidents, rows.Err()
}

func (r *IncidentRepository) Update(ctx context.Context, incident *domain.Incident) (*domain.Incident, error) {
	const query = `
		UPDATE incidents
		SET title = $2, description = $3, status = $4, affected_services = $5, updates = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	updatesJSON, err := marshalUpdates(incident.Updates)
	if err != nil {
		return nil, err
	}

	affected := incident.AffectedServices
	if affected == nil {
		affected = []uuid.UUID{}
	}

	updated := *incident
	err = r.pool.QueryRow(ctx, query,
		incident.ID,
		incident.Title,
		incident.Description,
		incident.Status,
		affected,
		updatesJSON,
	).Scan(&updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIncidentNotFound
		}
		return nil, err
	}

	return &updated, nil
}

func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrIncidentNotFound
	}
	return nil
}

func (r *IncidentRepository) scanIncident(row pgx.Row) (*domain.Incident, error) {
	incident := &domain.Incident{}
	var updatesJSON []byte

	err := row.Scan(
		&incident.ID,
		&incident.OrganizationID,
		&incident.Title,
		&incident.Description,
		&incident.Status,
		&incident.AffectedServices,
		&updatesJSON,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	updates, err := unmarshalUpdates(updatesJSON)
	if err != nil {
		return nil, err
	}
	incident.Updates = updates

	return incident, nil
}
