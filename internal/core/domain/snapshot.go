package domain

import (
	"time"
)

// The snapshot types match the JSON the API serves. They double as the view
// state a status page holds: hydrate once from the snapshot fetch, then patch
// with Apply as events arrive.

// OrganizationSnapshot matches the API response shape for organizations.
type OrganizationSnapshot struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"createdAt"`
}

// ServiceSnapshot matches the API response shape for services.
type ServiceSnapshot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
}

// IncidentUpdateSnapshot matches the API response shape for timeline entries.
type IncidentUpdateSnapshot struct {
	Message    string  `json:"message"`
	PostedByID *string `json:"postedById"`
	Timestamp  string  `json:"timestamp"`
}

// IncidentSnapshot matches the API response shape for incidents.
type IncidentSnapshot struct {
	ID               string                   `json:"id"`
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	Status           string                   `json:"status"`
	AffectedServices []string                 `json:"affectedServices"`
	Updates          []IncidentUpdateSnapshot `json:"updates"`
	CreatedAt        string                   `json:"createdAt"`
	UpdatedAt        *string                  `json:"updatedAt"`
}

// StatusSnapshot is the denormalized state one status page renders: the
// organization, its services ordered by name, and its incidents
// most-recent-first.
type StatusSnapshot struct {
	Organization OrganizationSnapshot `json:"organization"`
	Services     []ServiceSnapshot    `json:"services"`
	Incidents    []IncidentSnapshot   `json:"incidents"`
}

// NewOrganizationSnapshot builds an organization snapshot from the domain entity.
func NewOrganizationSnapshot(org *Organization) OrganizationSnapshot {
	return OrganizationSnapshot{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewServiceSnapshot builds a service snapshot from the domain entity.
func NewServiceSnapshot(service *Service) ServiceSnapshot {
	return ServiceSnapshot{
		ID:          service.ID.String(),
		Name:        service.Name,
		Description: service.Description,
		Status:      string(service.Status),
		CreatedAt:   service.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   formatOptionalTime(service.UpdatedAt),
	}
}

// NewIncidentSnapshot builds an incident snapshot from the domain entity.
func NewIncidentSnapshot(incident *Incident) IncidentSnapshot {
	affected := make([]string, 0, len(incident.AffectedServices))
	for _, id := range incident.AffectedServices {
		affected = append(affected, id.String())
	}

	return IncidentSnapshot{
		ID:               incident.ID.String(),
		Title:            incident.Title,
		Description:      incident.Description,
		Status:           string(incident.Status),
		AffectedServices: affected,
		Updates:          NewIncidentUpdateSnapshots(incident.Updates),
		CreatedAt:        incident.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        formatOptionalTime(incident.UpdatedAt),
	}
}

// NewIncidentUpdateSnapshots maps a timeline to its wire shape.
func NewIncidentUpdateSnapshots(updates []IncidentUpdate) []IncidentUpdateSnapshot {
	out := make([]IncidentUpdateSnapshot, 0, len(updates))
	for _, u := range updates {
		var postedBy *string
		if u.PostedByID != nil {
			value := u.PostedByID.String()
			postedBy = &value
		}
		out = append(out, IncidentUpdateSnapshot{
			Message:    u.Message,
			PostedByID: postedBy,
			Timestamp:  u.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(time.RFC3339)
	return &value
}

// Apply is the event reducer: it returns the snapshot that results from
// applying one event to the previous state. It is pure (the receiver is not
// mutated) and total over the known event variants: unknown variants,
// mismatched payloads, and events referencing ids missing from the snapshot
// all return the previous state unchanged. Applying the same event twice
// yields the same state as applying it once.
func (s StatusSnapshot) Apply(event Event) StatusSnapshot {
	switch payload := event.Payload.(type) {
	case ServiceCreatedPayload:
		return s.applyServiceCreated(payload)
	case ServiceUpdatedPayload:
		return s.applyServiceUpdated(payload)
	case ServiceDeletedPayload:
		return s.applyServiceDeleted(payload)
	case IncidentCreatedPayload:
		return s.applyIncidentCreated(payload)
	case IncidentUpdatedPayload:
		return s.applyIncidentUpdated(payload)
	case IncidentDeletedPayload:
		return s.applyIncidentDeleted(payload)
	}
	return s
}

func (s StatusSnapshot) applyServiceCreated(p ServiceCreatedPayload) StatusSnapshot {
	for _, svc := range s.Services {
		if svc.ID == p.Service.ID {
			return s
		}
	}
	services := make([]ServiceSnapshot, 0, len(s.Services)+1)
	services = append(services, s.Services...)
	services = append(services, p.Service)
	s.Services = services
	return s
}

func (s StatusSnapshot) applyServiceUpdated(p ServiceUpdatedPayload) StatusSnapshot {
	for i, svc := range s.Services {
		if svc.ID == p.ServiceID {
			services := append([]ServiceSnapshot(nil), s.Services...)
			services[i].Status = p.Status
			s.Services = services
			return s
		}
	}
	return s
}

func (s StatusSnapshot) applyServiceDeleted(p ServiceDeletedPayload) StatusSnapshot {
	for i, svc := range s.Services {
		if svc.ID == p.ServiceID {
			services := make([]ServiceSnapshot, 0, len(s.Services)-1)
			services = append(services, s.Services[:i]...)
			services = append(services, s.Services[i+1:]...)
			s.Services = services
			return s
		}
	}
	return s
}

func (s StatusSnapshot) applyIncidentCreated(p IncidentCreatedPayload) StatusSnapshot {
	for _, inc := range s.Incidents {
		if inc.ID == p.Incident.ID {
			return s
		}
	}
	// Most-recent-first ordering: new incidents go to the front.
	incidents := make([]IncidentSnapshot, 0, len(s.Incidents)+1)
	incidents = append(incidents, p.Incident)
	incidents = append(incidents, s.Incidents...)
	s.Incidents = incidents
	return s
}

func (s StatusSnapshot) applyIncidentUpdated(p IncidentUpdatedPayload) StatusSnapshot {
	for i, inc := range s.Incidents {
		if inc.ID == p.IncidentID {
			incidents := append([]IncidentSnapshot(nil), s.Incidents...)
			incidents[i].Status = p.Status
			incidents[i].Updates = p.Updates
			s.Incidents = incidents
			return s
		}
	}
	return s
}

func (s StatusSnapshot) applyIncidentDeleted(p IncidentDeletedPayload) StatusSnapshot {
	for i, inc := range s.Incidents {
		if inc.ID == p.IncidentID {
			incidents := make([]IncidentSnapshot, 0, len(s.Incidents)-1)
			incidents = append(incidents, s.Incidents[:i]...)
			incidents = append(incidents, s.Incidents[i+1:]...)
			s.Incidents = incidents
			return s
		}
	}
	return s
}
