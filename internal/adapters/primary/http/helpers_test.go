package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/raviro/statuspage-backend/internal/adapters/primary/http/middleware"
	"github.com/raviro/statuspage-backend/internal/auth"
	"github.com/raviro/statuspage-backend/internal/core/mocks"
	"github.com/raviro/statuspage-backend/internal/core/services"
)

// testEnv wires the full REST router over mocked repositories so handler
// tests exercise routing, auth, validation and error mapping end to end
// without a database.
type testEnv struct {
	router       *chi.Mux
	tokenManager *auth.TokenManager

	userRepo     *mocks.MockUserRepository
	orgRepo      *mocks.MockOrganizationRepository
	serviceRepo  *mocks.MockServiceRepository
	incidentRepo *mocks.MockIncidentRepository
	broadcaster  *mocks.MockEventBroadcaster
	notifier     *mocks.MockNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokenManager := auth.NewTokenManager("test-secret", time.Hour)

	env := &testEnv{
		tokenManager: tokenManager,
		userRepo:     mocks.NewMockUserRepository(),
		orgRepo:      mocks.NewMockOrganizationRepository(),
		serviceRepo:  mocks.NewMockServiceRepository(),
		incidentRepo: mocks.NewMockIncidentRepository(),
		broadcaster:  mocks.NewMockEventBroadcaster(),
		notifier:     mocks.NewMockNotifier(),
	}

	// Notification fan-out is covered by the service tests; here it just has
	// to be absorbed.
	env.notifier.On("Notify", mock.Anything, mock.Anything).Maybe()

	errorHandler := NewErrorHandler(logger)

	authService := services.NewAuthService(env.userRepo)
	orgService := services.NewOrganizationService(env.orgRepo, env.userRepo)
	statusService := services.NewStatusService(env.serviceRepo, env.orgRepo, env.broadcaster, env.notifier)
	incidentService := services.NewIncidentService(env.incidentRepo, env.serviceRepo, env.orgRepo, env.broadcaster, env.notifier)
	statusPageService := services.NewStatusPageService(env.orgRepo, env.serviceRepo, env.incidentRepo)

	authHandler := NewAuthHandler(authService, tokenManager, errorHandler, logger)
	serviceHandler := NewServiceHandler(statusService, errorHandler, logger)
	incidentHandler := NewIncidentHandler(incidentService, errorHandler, logger)
	orgHandler := NewOrganizationHandler(orgService, serviceHandler, incidentHandler, errorHandler, logger)
	statusHandler := NewStatusHandler(statusPageService, errorHandler, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", authHandler.RegisterRoutes)
		r.Route("/status", statusHandler.RegisterRoutes)
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/organizations", orgHandler.RegisterRoutes)
			r.Route("/services", serviceHandler.RegisterRoutes)
			r.Route("/incidents", incidentHandler.RegisterRoutes)
		})
	})

	env.router = r
	return env
}

func (e *testEnv) tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	token, err := e.tokenManager.GenerateToken(userID, "user@example.com")
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeJSON(recorder *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(recorder.Body).Decode(v)
}

func decodeData[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var response struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	return response.Data
}
