package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

// IncidentService implements business logic for incident management. Like
// service mutations, every successful write is followed by a broadcast to the
// organization's room; incident activity also emails the other members.
type IncidentService struct {
	incidentRepo ports.IncidentRepository
	serviceRepo  ports.ServiceRepository
	orgRepo      ports.OrganizationRepository
	broadcaster  ports.EventBroadcaster
	notifier     ports.Notifier

	wg sync.WaitGroup
}

var _ ports.IncidentService = (*IncidentService)(nil)

// NewIncidentService creates a new incident service
func NewIncidentService(
	incidentRepo ports.IncidentRepository,
	serviceRepo ports.ServiceRepository,
	orgRepo ports.OrganizationRepository,
	broadcaster ports.EventBroadcaster,
	notifier ports.Notifier,
) *IncidentService {
	return &IncidentService{
		incidentRepo: incidentRepo,
		serviceRepo:  serviceRepo,
		orgRepo:      orgRepo,
		broadcaster:  broadcaster,
		notifier:     notifier,
	}
}

// Shutdown waits for in-flight notifications to finish.
func (s *IncidentService) Shutdown() {
	s.wg.Wait()
}

func (s *IncidentService) requireMember(ctx context.Context, orgID, userID uuid.UUID) (*domain.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !org.IsMember(userID) {
		return nil, apperrors.ErrNotMember
	}
	return org, nil
}

// notifyMembers emails every member of the organization except the actor,
// each on its own goroutine.
func (s *IncidentService) notifyMembers(org *domain.Organization, actorID uuid.UUID, subject, message string) {
	for _, member := range org.Members {
		if member.UserID == actorID {
			continue
		}
		s.wg.Add(1)
		go func(recipient uuid.UUID) {
			defer s.wg.Done()
			s.notifier.Notify(context.Background(), ports.NotificationParams{
				RecipientUserID: recipient,
				Subject:         subject,
				Message:         message,
				OrganizationID:  org.ID,
			})
		}(member.UserID)
	}
}

// validateAffectedServices checks every referenced service belongs to the
// incident's organization.
func (s *IncidentService) validateAffectedServices(ctx context.Context, orgID uuid.UUID, serviceIDs []uuid.UUID) error {
	for _, id := range serviceIDs {
		service, err := s.serviceRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if service.OrganizationID != orgID {
			return apperrors.ErrServiceWrongOrg
		}
	}
	return nil
}

// CreateIncident opens an incident on an organization's status page.
func (s *IncidentService) CreateIncident(ctx context.Context, params ports.CreateIncidentParams) (*domain.Incident, error) {
	org, err := s.requireMember(ctx, params.OrgID, params.ActorID)
	if err != nil {
		return nil, err
	}

	if err := s.validateAffectedServices(ctx, params.OrgID, params.AffectedServices); err != nil {
		return nil, err
	}

	incident, err := domain.NewIncident(
		params.OrgID,
		params.Title,
		params.Description,
		params.Status,
		params.AffectedServices,
		params.InitialMessage,
		params.ActorID,
	)
	if err != nil {
		return nil, err
	}

	created, err := s.incidentRepo.Create(ctx, incident)
	if err != nil {
		return nil, err
	}

	_ = s.broadcaster.Broadcast(domain.NewIncidentCreatedEvent(created))

	message := "We are investigating a new incident."
	if len(created.Updates) > 0 {
		message = created.Updates[0].Message
	}
	s.notifyMembers(org, params.ActorID,
		fmt.Sprintf("[%s] New Incident: %s", strings.ToUpper(string(created.Status)), created.Title),
		message,
	)

	return created, nil
}

// GetIncident fetches one incident for a member of its organization.
func (s *IncidentService) GetIncident(ctx context.Context, incidentID, viewerID uuid.UUID) (*domain.Incident, error) {
	incident, err := s.incidentRepo.GetByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireMember(ctx, incident.OrganizationID, viewerID); err != nil {
		return nil, err
	}

	return incident, nil
}

// ListIncidents lists an organization's incidents, most recent first.
func (s *IncidentService) ListIncidents(ctx context.Context, orgID, viewerID uuid.UUID) ([]*domain.Incident, error) {
	if _, err := s.requireMember(ctx, orgID, viewerID); err != nil {
		return nil, err
	}

	return s.incidentRepo.ListByOrganization(ctx, orgID)
}

// AddIncidentUpdate appends a timeline entry to an incident.
func (s *IncidentService) AddIncidentUpdate(ctx context.Context, params ports.AddIncidentUpdateParams) (*domain.Incident, error) {
	incident, err := s.incidentRepo.GetByID(ctx, params.IncidentID)
	if err != nil {
		return nil, err
	}

	org, err := s.requireMember(ctx, incident.OrganizationID, params.ActorID)
	if err != nil {
		return nil, err
	}

	if err := incident.AddUpdate(params.Message, params.ActorID); err != nil {
		return nil, err
	}

	updated, err := s.incidentRepo.Update(ctx, incident)
	if err != nil {
		return nil, err
	}

	_ = s.broadcaster.Broadcast(domain.NewIncidentUpdatedEvent(updated))

	s.notifyMembers(org, params.ActorID,
		fmt.Sprintf("[UPDATE] Incident: %s", updated.Title),
		params.Message,
	)

	return updated, nil
}

// UpdateIncidentStatus moves an incident through its lifecycle. The status
// change is recorded on the timeline; setting the current status again is a
// no-op that still returns the incident.
func (s *IncidentService) UpdateIncidentStatus(ctx context.Context, params ports.UpdateIncidentStatusParams) (*domain.Incident, error) {
	incident, err := s.incidentRepo.GetByID(ctx, params.IncidentID)
	if err != nil {
		return nil, err
	}

	org, err := s.requireMember(ctx, incident.OrganizationID, params.ActorID)
	if err != nil {
		return nil, err
	}

	previous := incident.Status
	if err := incident.SetStatus(params.Status, params.ActorID); err != nil {
		return nil, err
	}
	if incident.Status == previous {
		return incident, nil
	}

	updated, err := s.incidentRepo.Update(ctx, incident)
	if err != nil {
		return nil, err
	}

	_ = s.broadcaster.Broadcast(domain.NewIncidentUpdatedEvent(updated))

	s.notifyMembers(org, params.ActorID,
		fmt.Sprintf("[UPDATE] Incident: %s", updated.Title),
		fmt.Sprintf("The incident status changed from %s to %s.", previous, updated.Status),
	)

	return updated, nil
}

// DeleteIncident removes an incident from the status page.
func (s *IncidentService) DeleteIncident(ctx context.Context, incidentID, actorID uuid.UUID) error {
	incident, err := s.incidentRepo.GetByID(ctx, incidentID)
	if err != nil {
		return err
	}

	if _, err := s.requireMember(ctx, incident.OrganizationID, actorID); err != nil {
		return err
	}

	if err := s.incidentRepo.Delete(ctx, incidentID); err != nil {
		return err
	}

	_ = s.broadcaster.Broadcast(domain.NewIncidentDeletedEvent(incident.OrganizationID, incidentID))

	return nil
}
