package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
)

func TestValidIncidentStatus(t *testing.T) {
	tests := []struct {
		name   string
		status domain.IncidentStatus
		want   bool
	}{
		{"Investigating is valid", domain.IncidentInvestigating, true},
		{"Identified is valid", domain.IncidentIdentified, true},
		{"Monitoring is valid", domain.IncidentMonitoring, true},
		{"Resolved is valid", domain.IncidentResolved, true},
		{"empty is invalid", domain.IncidentStatus(""), false},
		{"unknown is invalid", domain.IncidentStatus("Closed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ValidIncidentStatus(tt.status))
		})
	}
}

func TestNewIncident(t *testing.T) {
	orgID := uuid.New()
	reporter := uuid.New()

	t.Run("valid incident with initial message", func(t *testing.T) {
		affected := []uuid.UUID{uuid.New(), uuid.New()}
		incident, err := domain.NewIncident(orgID, "Elevated error rates", "5xx spike on the API", domain.IncidentInvestigating, affected, "We are investigating.", reporter)
		require.NoError(t, err)

		assert.Equal(t, orgID, incident.OrganizationID)
		assert.Equal(t, affected, incident.AffectedServices)
		require.Len(t, incident.Updates, 1)
		assert.Equal(t, "We are investigating.", incident.Updates[0].Message)
		require.NotNil(t, incident.Updates[0].PostedByID)
		assert.Equal(t, reporter, *incident.Updates[0].PostedByID)
	})

	t.Run("no initial message means empty timeline", func(t *testing.T) {
		incident, err := domain.NewIncident(orgID, "Elevated error rates", "", domain.IncidentInvestigating, nil, "", reporter)
		require.NoError(t, err)
		assert.Empty(t, incident.Updates)
	})

	t.Run("empty status defaults to Investigating", func(t *testing.T) {
		incident, err := domain.NewIncident(orgID, "Elevated error rates", "", "", nil, "", reporter)
		require.NoError(t, err)
		assert.Equal(t, domain.IncidentInvestigating, incident.Status)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		_, err := domain.NewIncident(orgID, "", "", "", nil, "", reporter)
		assert.ErrorIs(t, err, apperrors.ErrIncidentTitleRequired)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := domain.NewIncident(orgID, "Elevated error rates", "", "Closed", nil, "", reporter)
		assert.ErrorIs(t, err, apperrors.ErrInvalidIncidentStatus)
	})
}

func TestIncident_AddUpdate(t *testing.T) {
	reporter := uuid.New()
	incident, err := domain.NewIncident(uuid.New(), "Outage", "", "", nil, "First report.", reporter)
	require.NoError(t, err)

	poster := uuid.New()
	require.NoError(t, incident.AddUpdate("Mitigation deployed.", poster))

	require.Len(t, incident.Updates, 2)
	assert.Equal(t, "Mitigation deployed.", incident.Updates[1].Message)
	require.NotNil(t, incident.Updates[1].PostedByID)
	assert.Equal(t, poster, *incident.Updates[1].PostedByID)
	require.NotNil(t, incident.UpdatedAt)

	err = incident.AddUpdate("", poster)
	assert.ErrorIs(t, err, apperrors.ErrUpdateMessageRequired)
	assert.Len(t, incident.Updates, 2)
}

func TestIncident_SetStatus(t *testing.T) {
	actor := uuid.New()
	incident, err := domain.NewIncident(uuid.New(), "Outage", "", domain.IncidentInvestigating, nil, "", actor)
	require.NoError(t, err)

	t.Run("status change records a timeline entry", func(t *testing.T) {
		require.NoError(t, incident.SetStatus(domain.IncidentIdentified, actor))

		assert.Equal(t, domain.IncidentIdentified, incident.Status)
		require.Len(t, incident.Updates, 1)
		assert.Equal(t, "Status changed from Investigating to Identified.", incident.Updates[0].Message)
	})

	t.Run("setting the current status is a no-op", func(t *testing.T) {
		require.NoError(t, incident.SetStatus(domain.IncidentIdentified, actor))

		assert.Equal(t, domain.IncidentIdentified, incident.Status)
		assert.Len(t, incident.Updates, 1)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		err := incident.SetStatus("Closed", actor)
		assert.ErrorIs(t, err, apperrors.ErrInvalidIncidentStatus)
		assert.Equal(t, domain.IncidentIdentified, incident.Status)
	})
}
