package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

// StatusService implements business logic for the monitored services shown on
// a status page. Every successful mutation broadcasts an event to the
// organization's room after the write has committed; status changes also
// email the other organization members.
type StatusService struct {
	serviceRepo ports.ServiceRepository
	orgRepo     ports.OrganizationRepository
	broadcaster ports.EventBroadcaster
	notifier    ports.Notifier

	wg sync.WaitGroup
}

var _ ports.StatusService = (*StatusService)(nil)

// NewStatusService creates a new status service
func NewStatusService(
	serviceRepo ports.ServiceRepository,
	orgRepo ports.OrganizationRepository,
	broadcaster ports.EventBroadcaster,
	notifier ports.Notifier,
) *StatusService {
	return &StatusService{
		serviceRepo: serviceRepo,
		orgRepo:     orgRepo,
		broadcaster: broadcaster,
		notifier:    notifier,
	}
}

// Shutdown waits for in-flight notifications to finish.
func (s *StatusService) Shutdown() {
	s.wg.Wait()
}

// notifyStatusChange emails every member of the organization except the
// actor. Sends run on their own goroutines so the mutation path never waits
// on the mail relay.
func (s *StatusService) notifyStatusChange(org *domain.Organization, service *domain.Service, previous domain.ServiceStatus, actorID uuid.UUID) {
	for _, member := range org.Members {
		if member.UserID == actorID {
			continue
		}
		s.wg.Add(1)
		go func(recipient uuid.UUID) {
			defer s.wg.Done()
			s.notifier.Notify(context.Background(), ports.NotificationParams{
				RecipientUserID: recipient,
				Subject:         fmt.Sprintf("Status Update for %s", service.Name),
				Message:         fmt.Sprintf("The status of '%s' changed from %s to %s.", service.Name, previous, service.Status),
				OrganizationID:  org.ID,
			})
		}(member.UserID)
	}
}

// requireMember fetches the organization and checks the user belongs to it.
func (s *StatusService) requireMember(ctx context.Context, orgID, userID uuid.UUID) (*domain.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !org.IsMember(userID) {
		return nil, apperrors.ErrNotMember
	}
	return org, nil
}

// CreateService adds a monitored service to an organization's status page.
func (s *StatusService) CreateService(ctx context.Context, params ports.CreateServiceParams) (*domain.Service, error) {
	if _, err := s.requireMember(ctx, params.OrgID, params.ActorID); err != nil {
		return nil, err
	}

	service, err := domain.NewService(params.OrgID, params.Name, params.Description, params.Status)
	if err != nil {
		return nil, err
	}

	created, err := s.serviceRepo.Create(ctx, service)
	if err != nil {
		return nil, err
	}

	// Broadcast only after the write committed. Delivery is best-effort.
	_ = s.broadcaster.Broadcast(domain.NewServiceCreatedEvent(created))

	return created, nil
}

// GetService fetches one service for a member of its organization.
func (s *StatusService) GetService(ctx context.Context, serviceID, viewerID uuid.UUID) (*domain.Service, error) {
	service, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireMember(ctx, service.OrganizationID, viewerID); err != nil {
		return nil, err
	}

	return service, nil
}

// ListServices lists an organization's services for one of its members.
func (s *StatusService) ListServices(ctx context.Context, orgID, viewerID uuid.UUID) ([]*domain.Service, error) {
	if _, err := s.requireMember(ctx, orgID, viewerID); err != nil {
		return nil, err
	}

	return s.serviceRepo.ListByOrganization(ctx, orgID)
}

// UpdateService applies a partial update to a service. Nil fields are left
// unchanged.
func (s *StatusService) UpdateService(ctx context.Context, params ports.UpdateServiceParams) (*domain.Service, error) {
	service, err := s.serviceRepo.GetByID(ctx, params.ServiceID)
	if err != nil {
		return nil, err
	}

	org, err := s.requireMember(ctx, service.OrganizationID, params.ActorID)
	if err != nil {
		return nil, err
	}

	previous := service.Status
	if params.Name != nil {
		if *params.Name == "" {
			return nil, apperrors.ErrServiceNameRequired
		}
		service.Name = *params.Name
	}
	if params.Description != nil {
		service.Description = *params.Description
	}
	if params.Status != nil {
		if err := service.SetStatus(*params.Status); err != nil {
			return nil, err
		}
	}

	updated, err := s.serviceRepo.Update(ctx, service)
	if err != nil {
		return nil, err
	}

	_ = s.broadcaster.Broadcast(domain.NewServiceUpdatedEvent(updated))

	if updated.Status != previous {
		s.notifyStatusChange(org, updated, previous, params.ActorID)
	}

	return updated, nil
}

// DeleteService removes a service from the status page.
func (s *StatusService) DeleteService(ctx context.Context, serviceID, actorID uuid.UUID) error {
	service, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return err
	}

	if _, err := s.requireMember(ctx, service.OrganizationID, actorID); err != nil {
		return err
	}

	if err := s.serviceRepo.Delete(ctx, serviceID); err != nil {
		return err
	}

	_ = s.broadcaster.Broadcast(domain.NewServiceDeletedEvent(service.OrganizationID, serviceID))

	return nil
}
