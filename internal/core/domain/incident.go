package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
)

const (
	MaxIncidentTitleLength = 255
	MaxUpdateMessageLength = 4096
)

// IncidentStatus represents where an incident is in its lifecycle.
type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "Investigating"
	IncidentIdentified    IncidentStatus = "Identified"
	IncidentMonitoring    IncidentStatus = "Monitoring"
	IncidentResolved      IncidentStatus = "Resolved"
)

// ValidIncidentStatus reports whether s is a known incident status.
func ValidIncidentStatus(s IncidentStatus) bool {
	switch s {
	case IncidentInvestigating, IncidentIdentified, IncidentMonitoring, IncidentResolved:
		return true
	}
	return false
}

// IncidentUpdate is one timeline entry on an incident.
type IncidentUpdate struct {
	Message    string
	PostedByID *uuid.UUID
	Timestamp  time.Time
}

// Incident is an ongoing or resolved disruption affecting zero or more of an
// organization's services.
type Incident struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	Title            string
	Description      string
	Status           IncidentStatus
	AffectedServices []uuid.UUID
	Updates          []IncidentUpdate
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

// NewIncident creates a valid incident. An empty status defaults to
// Investigating. If initialMessage is non-empty it becomes the first
// timeline entry.
func NewIncident(orgID uuid.UUID, title, description string, status IncidentStatus, affected []uuid.UUID, initialMessage string, postedBy uuid.UUID) (*Incident, error) {
	if title == "" {
		return nil, apperrors.ErrIncidentTitleRequired
	}
	if len(title) > MaxIncidentTitleLength {
		return nil, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "incident title is too long")
	}

	if status == "" {
		status = IncidentInvestigating
	}
	if !ValidIncidentStatus(status) {
		return nil, apperrors.ErrInvalidIncidentStatus
	}

	now := time.Now().UTC()
	incident := &Incident{
		OrganizationID:   orgID,
		Title:            title,
		Description:      description,
		Status:           status,
		AffectedServices: affected,
		CreatedAt:        now,
	}

	if initialMessage != "" {
		poster := postedBy
		incident.Updates = []IncidentUpdate{{
			Message:    initialMessage,
			PostedByID: &poster,
			Timestamp:  now,
		}}
	}

	return incident, nil
}

// AddUpdate appends a timeline entry.
func (i *Incident) AddUpdate(message string, postedBy uuid.UUID) error {
	if message == "" {
		return apperrors.ErrUpdateMessageRequired
	}
	if len(message) > MaxUpdateMessageLength {
		return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "update message is too long")
	}

	now := time.Now().UTC()
	poster := postedBy
	i.Updates = append(i.Updates, IncidentUpdate{
		Message:    message,
		PostedByID: &poster,
		Timestamp:  now,
	})
	i.UpdatedAt = &now
	return nil
}

// SetStatus changes the incident status and records the change on the
// timeline. Setting the current status again is a no-op.
func (i *Incident) SetStatus(status IncidentStatus, actorID uuid.UUID) error {
	if !ValidIncidentStatus(status) {
		return apperrors.ErrInvalidIncidentStatus
	}
	if status == i.Status {
		return nil
	}

	previous := i.Status
	i.Status = status

	now := time.Now().UTC()
	poster := actorID
	i.Updates = append(i.Updates, IncidentUpdate{
		Message:    fmt.Sprintf("Status changed from %s to %s.", previous, status),
		PostedByID: &poster,
		Timestamp:  now,
	})
	i.UpdatedAt = &now
	return nil
}
