package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
	"github.com/raviro/statuspage-backend/internal/core/mocks"
	"github.com/raviro/statuspage-backend/internal/core/ports"
	"github.com/raviro/statuspage-backend/internal/core/services"
)

type incidentServiceMocks struct {
	incidents   *mocks.MockIncidentRepository
	servicesRep *mocks.MockServiceRepository
	orgs        *mocks.MockOrganizationRepository
	broadcaster *mocks.MockEventBroadcaster
	notifier    *mocks.MockNotifier
}

func newIncidentService() (*services.IncidentService, incidentServiceMocks) {
	m := incidentServiceMocks{
		incidents:   mocks.NewMockIncidentRepository(),
		servicesRep: mocks.NewMockServiceRepository(),
		orgs:        mocks.NewMockOrganizationRepository(),
		broadcaster: mocks.NewMockEventBroadcaster(),
		notifier:    mocks.NewMockNotifier(),
	}
	m.notifier.On("Notify", mock.Anything, mock.Anything).Maybe()
	svc := services.NewIncidentService(m.incidents, m.servicesRep, m.orgs, m.broadcaster, m.notifier)
	return svc, m
}

func TestIncidentService_CreateIncident(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("broadcasts incident_created after the write", func(t *testing.T) {
		svc, m := newIncidentService()

		org := memberOrg(actorID)
		created := &domain.Incident{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			Title:          "Checkout errors",
			Status:         domain.IncidentInvestigating,
		}

		m.orgs.On("GetByID", ctx, org.ID).Return(org, nil)
		m.incidents.On("Create", ctx, mock.AnythingOfType("*domain.Incident")).Return(created, nil)
		m.broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventIncidentCreated && e.OrganizationID == org.ID
		})).Return(nil)

		result, err := svc.CreateIncident(ctx, ports.CreateIncidentParams{
			OrgID:   org.ID,
			Title:   "Checkout errors",
			ActorID: actorID,
		})

		require.NoError(t, err)
		assert.Equal(t, created.ID, result.ID)
		m.broadcaster.AssertExpectations(t)
	})

	t.Run("rejects affected service from another organization", func(t *testing.T) {
		svc, m := newIncidentService()

		org := memberOrg(actorID)
		foreignService := &domain.Service{ID: uuid.New(), OrganizationID: uuid.New()}

		m.orgs.On("GetByID", ctx, org.ID).Return(org, nil)
		m.servicesRep.On("GetByID", ctx, foreignService.ID).Return(foreignService, nil)

		_, err := svc.CreateIncident(ctx, ports.CreateIncidentParams{
			OrgID:            org.ID,
			Title:            "Checkout errors",
			AffectedServices: []uuid.UUID{foreignService.ID},
			ActorID:          actorID,
		})

		assert.ErrorIs(t, err, apperrors.ErrServiceWrongOrg)
		m.incidents.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestIncidentService_Notifications(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	memberID := uuid.New()

	// No Maybe absorption here: these tests pin down exactly who gets mail.
	setup := func() (*services.IncidentService, incidentServiceMocks) {
		m := incidentServiceMocks{
			incidents:   mocks.NewMockIncidentRepository(),
			servicesRep: mocks.NewMockServiceRepository(),
			orgs:        mocks.NewMockOrganizationRepository(),
			broadcaster: mocks.NewMockEventBroadcaster(),
			notifier:    mocks.NewMockNotifier(),
		}
		svc := services.NewIncidentService(m.incidents, m.servicesRep, m.orgs, m.broadcaster, m.notifier)
		return svc, m
	}

	org := memberOrg(actorID)
	org.Members = append(org.Members, domain.OrganizationMember{UserID: memberID, Role: domain.RoleMember})

	t.Run("new incident emails the other members", func(t *testing.T) {
		svc, m := setup()

		created := &domain.Incident{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			Title:          "Checkout errors",
			Status:         domain.IncidentInvestigating,
		}

		m.orgs.On("GetByID", ctx, org.ID).Return(org, nil)
		m.incidents.On("Create", ctx, mock.AnythingOfType("*domain.Incident")).Return(created, nil)
		m.broadcaster.On("Broadcast", mock.Anything).Return(nil)
		m.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(p ports.NotificationParams) bool {
			return p.RecipientUserID == memberID &&
				p.Subject == "[INVESTIGATING] New Incident: Checkout errors" &&
				p.OrganizationID == org.ID
		})).Once()

		_, err := svc.CreateIncident(ctx, ports.CreateIncidentParams{
			OrgID:   org.ID,
			Title:   "Checkout errors",
			ActorID: actorID,
		})
		require.NoError(t, err)

		svc.Shutdown()
		m.notifier.AssertExpectations(t)
		m.notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("timeline update emails the other members", func(t *testing.T) {
		svc, m := setup()

		incident := &domain.Incident{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			Title:          "Checkout errors",
			Status:         domain.IncidentInvestigating,
		}

		m.incidents.On("GetByID", ctx, incident.ID).Return(incident, nil)
		m.orgs.On("GetByID", ctx, org.ID).Return(org, nil)
		m.incidents.On("Update", ctx, mock.AnythingOfType("*domain.Incident")).Return(incident, nil)
		m.broadcaster.On("Broadcast", mock.Anything).Return(nil)
		m.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(p ports.NotificationParams) bool {
			return p.RecipientUserID == memberID &&
				p.Subject == "[UPDATE] Incident: Checkout errors" &&
				p.Message == "Mitigation rolling out."
		})).Once()

		_, err := svc.AddIncidentUpdate(ctx, ports.AddIncidentUpdateParams{
			IncidentID: incident.ID,
			Message:    "Mitigation rolling out.",
			ActorID:    actorID,
		})
		require.NoError(t, err)

		svc.Shutdown()
		m.notifier.AssertExpectations(t)
		m.notifier.AssertNumberOfCalls(t, "Notify", 1)
	})
}

func TestIncidentService_UpdateIncidentStatus(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("status change is recorded and broadcast", func(t *testing.T) {
		svc, m := newIncidentService()

		org := memberOrg(actorID)
		incident := &domain.Incident{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			Title:          "Checkout errors",
			Status:         domain.IncidentInvestigating,
		}

		m.incidents.On("GetByID", ctx, incident.ID).Return(incident, nil)
		m.orgs.On("GetByID", ctx, org.ID).Return(org, nil)
		m.incidents.On("Update", ctx, mock.MatchedBy(func(i *domain.Incident) bool {
			// The status change lands on the timeline before persisting.
			return i.Status == domain.IncidentIdentified && len(i.Updates) == 1
		})).Return(incident, nil)
		m.broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventIncidentUpdated
		})).Return(nil)

		_, err := svc.UpdateIncidentStatus(ctx, ports.UpdateIncidentStatusParams{
			IncidentID: incident.ID,
			Status:     domain.IncidentIdentified,
			ActorID:    actorID,
		})

		require.NoError(t, err)
		m.broadcaster.AssertExpectations(t)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		svc, m := newIncidentService()

		org := memberOrg(actorID)
		incident := &domain.Incident{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			Title:          "Checkout errors",
			Status:         domain.IncidentMonitoring,
		}

		m.incidents.On("GetByID", ctx, incident.ID).Return(incident, nil)
		m.orgs.On("GetByID", ctx, org.ID).Return(org, nil)

		result, err := svc.UpdateIncidentStatus(ctx, ports.UpdateIncidentStatusParams{
			IncidentID: incident.ID,
			Status:     domain.IncidentMonitoring,
			ActorID:    actorID,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.IncidentMonitoring, result.Status)
		m.incidents.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		m.broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything)
	})
}

func TestIncidentService_AddIncidentUpdate(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("appends and broadcasts", func(t *testing.T) {
		svc, m := newIncidentService()

		org := memberOrg(actorID)
		incident := &domain.Incident{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			Title:          "Checkout errors",
			Status:         domain.IncidentInvestigating,
		}

		m.incidents.On("GetByID", ctx, incident.ID).Return(incident, nil)
		m.orgs.On("GetByID", ctx, org.ID).Return(org, nil)
		m.incidents.On("Update", ctx, mock.MatchedBy(func(i *domain.Incident) bool {
			return len(i.Updates) == 1 && i.Updates[0].Message == "Mitigation rolling out."
		})).Return(incident, nil)
		m.broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventIncidentUpdated
		})).Return(nil)

		_, err := svc.AddIncidentUpdate(ctx, ports.AddIncidentUpdateParams{
			IncidentID: incident.ID,
			Message:    "Mitigation rolling out.",
			ActorID:    actorID,
		})

		require.NoError(t, err)
		m.broadcaster.AssertExpectations(t)
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		svc, m := newIncidentService()

		org := memberOrg(actorID)
		incident := &domain.Incident{ID: uuid.New(), OrganizationID: org.ID, Title: "X"}

		m.incidents.On("GetByID", ctx, incident.ID).Return(incident, nil)
		m.orgs.On("GetByID", ctx, org.ID).Return(org, nil)

		_, err := svc.AddIncidentUpdate(ctx, ports.AddIncidentUpdateParams{
			IncidentID: incident.ID,
			Message:    "",
			ActorID:    actorID,
		})

		assert.ErrorIs(t, err, apperrors.ErrUpdateMessageRequired)
	})
}

func TestIncidentService_DeleteIncident(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	svc, m := newIncidentService()

	org := memberOrg(actorID)
	incident := &domain.Incident{ID: uuid.New(), OrganizationID: org.ID, Title: "Doomed"}

	m.incidents.On("GetByID", ctx, incident.ID).Return(incident, nil)
	m.orgs.On("GetByID", ctx, org.ID).Return(org, nil)
	m.incidents.On("Delete", ctx, incident.ID).Return(nil)
	m.broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
		if e.Type != domain.EventIncidentDeleted {
			return false
		}
		payload := e.Payload.(domain.IncidentDeletedPayload)
		return payload.IncidentID == incident.ID.String()
	})).Return(nil)

	require.NoError(t, svc.DeleteIncident(ctx, incident.ID, actorID))
	m.broadcaster.AssertExpectations(t)
}
