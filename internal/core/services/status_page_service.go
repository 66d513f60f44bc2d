package services

import (
	"context"
	"sort"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

// StatusPageService assembles the public snapshot a status page hydrates
// from. It requires no authentication: status pages are public.
type StatusPageService struct {
	orgRepo      ports.OrganizationRepository
	serviceRepo  ports.ServiceRepository
	incidentRepo ports.IncidentRepository
}

var _ ports.StatusPageService = (*StatusPageService)(nil)

// NewStatusPageService creates a new status page service
func NewStatusPageService(
	orgRepo ports.OrganizationRepository,
	serviceRepo ports.ServiceRepository,
	incidentRepo ports.IncidentRepository,
) *StatusPageService {
	return &StatusPageService{
		orgRepo:      orgRepo,
		serviceRepo:  serviceRepo,
		incidentRepo: incidentRepo,
	}
}

// GetPublicSnapshot returns the full current state of one organization's
// status page: services ordered by name, incidents most recent first.
// Consumers hydrate from this snapshot and then patch it with events.
func (s *StatusPageService) GetPublicSnapshot(ctx context.Context, slug string) (*domain.StatusSnapshot, error) {
	org, err := s.orgRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	services, err := s.serviceRepo.ListByOrganization(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	incidents, err := s.incidentRepo.ListByOrganization(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	serviceSnaps := make([]domain.ServiceSnapshot, 0, len(services))
	for _, service := range services {
		serviceSnaps = append(serviceSnaps, domain.NewServiceSnapshot(service))
	}
	sort.Slice(serviceSnaps, func(i, j int) bool {
		return serviceSnaps[i].Name < serviceSnaps[j].Name
	})

	incidentSnaps := make([]domain.IncidentSnapshot, 0, len(incidents))
	for _, incident := range incidents {
		incidentSnaps = append(incidentSnaps, domain.NewIncidentSnapshot(incident))
	}

	return &domain.StatusSnapshot{
		Organization: domain.NewOrganizationSnapshot(org),
		Services:     serviceSnaps,
		Incidents:    incidentSnaps,
	}, nil
}
