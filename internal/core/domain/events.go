package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EventType defines the type of real-time event.
type EventType string

const (
	EventServiceCreated  EventType = "service_created"
	EventServiceUpdated  EventType = "service_updated"
	EventServiceDeleted  EventType = "service_deleted"
	EventIncidentCreated EventType = "incident_created"
	EventIncidentUpdated EventType = "incident_updated"
	EventIncidentDeleted EventType = "incident_deleted"
)

// Event is the payload broadcast over WebSocket to one organization's room.
// Events are ephemeral: created after a successful write, fanned out to the
// room, then discarded.
type Event struct {
	Type           EventType   `json:"type"`
	OrganizationID uuid.UUID   `json:"organizationId"`
	Payload        interface{} `json:"payload"`
}

// ServiceCreatedPayload carries the full new service.
type ServiceCreatedPayload struct {
	Service ServiceSnapshot `json:"service"`
}

// ServiceUpdatedPayload carries only the changed status; consumers patch the
// matching service in place.
type ServiceUpdatedPayload struct {
	ServiceID string `json:"serviceId"`
	Status    string `json:"status"`
}

// ServiceDeletedPayload identifies the removed service.
type ServiceDeletedPayload struct {
	ServiceID string `json:"serviceId"`
}

// IncidentCreatedPayload carries the full new incident.
type IncidentCreatedPayload struct {
	Incident IncidentSnapshot `json:"incident"`
}

// IncidentUpdatedPayload carries the incident's current status and full
// timeline. The timeline is replaced wholesale on the consumer, which keeps
// the reducer idempotent under redelivery.
type IncidentUpdatedPayload struct {
	IncidentID string                   `json:"incidentId"`
	Status     string                   `json:"status"`
	Updates    []IncidentUpdateSnapshot `json:"updates"`
}

// IncidentDeletedPayload identifies the removed incident.
type IncidentDeletedPayload struct {
	IncidentID string `json:"incidentId"`
}

// NewServiceCreatedEvent builds the broadcast event for a new service.
func NewServiceCreatedEvent(service *Service) Event {
	return Event{
		Type:           EventServiceCreated,
		OrganizationID: service.OrganizationID,
		Payload:        ServiceCreatedPayload{Service: NewServiceSnapshot(service)},
	}
}

// NewServiceUpdatedEvent builds the broadcast event for a status change.
func NewServiceUpdatedEvent(service *Service) Event {
	return Event{
		Type:           EventServiceUpdated,
		OrganizationID: service.OrganizationID,
		Payload: ServiceUpdatedPayload{
			ServiceID: service.ID.String(),
			Status:    string(service.Status),
		},
	}
}

// NewServiceDeletedEvent builds the broadcast event for a removed service.
func NewServiceDeletedEvent(orgID, serviceID uuid.UUID) Event {
	return Event{
		Type:           EventServiceDeleted,
		OrganizationID: orgID,
		Payload:        ServiceDeletedPayload{ServiceID: serviceID.String()},
	}
}

// NewIncidentCreatedEvent builds the broadcast event for a new incident.
func NewIncidentCreatedEvent(incident *Incident) Event {
	return Event{
		Type:           EventIncidentCreated,
		OrganizationID: incident.OrganizationID,
		Payload:        IncidentCreatedPayload{Incident: NewIncidentSnapshot(incident)},
	}
}

// NewIncidentUpdatedEvent builds the broadcast event for a status change or
// timeline addition.
func NewIncidentUpdatedEvent(incident *Incident) Event {
	return Event{
		Type:           EventIncidentUpdated,
		OrganizationID: incident.OrganizationID,
		Payload: IncidentUpdatedPayload{
			IncidentID: incident.ID.String(),
			Status:     string(incident.Status),
			Updates:    NewIncidentUpdateSnapshots(incident.Updates),
		},
	}
}

// NewIncidentDeletedEvent builds the broadcast event for a removed incident.
func NewIncidentDeletedEvent(orgID, incidentID uuid.UUID) Event {
	return Event{
		Type:           EventIncidentDeleted,
		OrganizationID: orgID,
		Payload:        IncidentDeletedPayload{IncidentID: incidentID.String()},
	}
}

// wireEvent is the envelope shape used to decode inbound events.
type wireEvent struct {
	Type           EventType       `json:"type"`
	OrganizationID uuid.UUID       `json:"organizationId"`
	Payload        json.RawMessage `json:"payload"`
}

// DecodeEvent parses a JSON event into an Event whose Payload is the concrete
// payload struct for its type. Unknown types return an error so consumers can
// log and drop them.
func DecodeEvent(data []byte) (Event, error) {
	var raw wireEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}

	event := Event{Type: raw.Type, OrganizationID: raw.OrganizationID}

	decode := func(dst interface{}) error {
		if err := json.Unmarshal(raw.Payload, dst); err != nil {
			return fmt.Errorf("decode %s payload: %w", raw.Type, err)
		}
		return nil
	}

	switch raw.Type {
	case EventServiceCreated:
		var p ServiceCreatedPayload
		if err := decode(&p); err != nil {
			return Event{}, err
		}
		event.Payload = p
	case EventServiceUpdated:
		var p ServiceUpdatedPayload
		if err := decode(&p); err != nil {
			return Event{}, err
		}
		event.Payload = p
	case EventServiceDeleted:
		var p ServiceDeletedPayload
		if err := decode(&p); err != nil {
			return Event{}, err
		}
		event.Payload = p
	case EventIncidentCreated:
		var p IncidentCreatedPayload
		if err := decode(&p); err != nil {
			return Event{}, err
		}
		event.Payload = p
	case EventIncidentUpdated:
		var p IncidentUpdatedPayload
		if err := decode(&p); err != nil {
			return Event{}, err
		}
		event.Payload = p
	case EventIncidentDeleted:
		var p IncidentDeletedPayload
		if err := decode(&p); err != nil {
			return Event{}, err
		}
		event.Payload = p
	default:
		return Event{}, fmt.Errorf("unknown event type %q", raw.Type)
	}

	return event, nil
}
