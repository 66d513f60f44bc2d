package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
)

const (
	MaxServiceNameLength = 255
	MaxDescriptionLength = 4096
)

// ServiceStatus represents the displayed health of a monitored service.
type ServiceStatus string

const (
	StatusOperational      ServiceStatus = "Operational"
	StatusDegraded         ServiceStatus = "Degraded Performance"
	StatusPartialOutage    ServiceStatus = "Partial Outage"
	StatusMajorOutage      ServiceStatus = "Major Outage"
	StatusUnderMaintenance ServiceStatus = "Under Maintenance"
)

// ValidServiceStatus reports whether s is a known service status.
func ValidServiceStatus(s ServiceStatus) bool {
	switch s {
	case StatusOperational, StatusDegraded, StatusPartialOutage, StatusMajorOutage, StatusUnderMaintenance:
		return true
	}
	return false
}

// Service is one monitored component on an organization's status page.
type Service struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Description    string
	Status         ServiceStatus
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// NewService creates a valid service. An empty status defaults to Operational.
func NewService(orgID uuid.UUID, name, description string, status ServiceStatus) (*Service, error) {
	if name == "" {
		return nil, apperrors.ErrServiceNameRequired
	}
	if len(name) > MaxServiceNameLength {
		return nil, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "service name is too long")
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "service description is too long")
	}

	if status == "" {
		status = StatusOperational
	}
	if !ValidServiceStatus(status) {
		return nil, apperrors.ErrInvalidServiceStatus
	}

	return &Service{
		OrganizationID: orgID,
		Name:           name,
		Description:    description,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// SetStatus changes the displayed status. Any known status may follow any
// other; there is no transition graph for service health.
func (s *Service) SetStatus(status ServiceStatus) error {
	if !ValidServiceStatus(status) {
		return apperrors.ErrInvalidServiceStatus
	}
	s.Status = status
	now := time.Now().UTC()
	s.UpdatedAt = &now
	return nil
}
