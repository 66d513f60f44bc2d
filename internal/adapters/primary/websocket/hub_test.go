package websocket

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raviro/statuspage-backend/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient builds a client that is never attached to a real connection.
// Hub membership and delivery only touch the Send channel and room state.
func newTestClient(hub *Hub, buffer int) *Client {
	id := uuid.New()
	return &Client{
		Hub:    hub,
		Send:   make(chan domain.Event, buffer),
		ID:     id,
		timing: DefaultTiming(),
		logger: discardLogger(),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// receiveEvent waits for one event on the client's send channel.
func receiveEvent(t *testing.T, client *Client) domain.Event {
	t.Helper()

	select {
	case event, ok := <-client.Send:
		require.True(t, ok, "send channel closed unexpectedly")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

// assertNoEvent asserts nothing is delivered to the client within a short
// window.
func assertNoEvent(t *testing.T, client *Client) {
	t.Helper()

	select {
	case event, ok := <-client.Send:
		if ok {
			t.Fatalf("unexpected event delivered: %s", event.Type)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func serviceEvent(orgID uuid.UUID, serviceID string) domain.Event {
	return domain.Event{
		Type:           domain.EventServiceUpdated,
		OrganizationID: orgID,
		Payload: domain.ServiceUpdatedPayload{
			ServiceID: serviceID,
			Status:    string(domain.StatusMajorOutage),
		},
	}
}

func TestHub_BroadcastReachesRoomMembers(t *testing.T) {
	hub := startHub(t)
	orgID := uuid.New()

	first := newTestClient(hub, 8)
	second := newTestClient(hub, 8)
	hub.RegisterClient(first)
	hub.RegisterClient(second)
	hub.JoinRoom(first, orgID)
	hub.JoinRoom(second, orgID)

	event := serviceEvent(orgID, uuid.NewString())
	require.NoError(t, hub.Broadcast(event))

	assert.Equal(t, event, receiveEvent(t, first))
	assert.Equal(t, event, receiveEvent(t, second))
}

func TestHub_RoomsAreIsolated(t *testing.T) {
	hub := startHub(t)
	orgA := uuid.New()
	orgB := uuid.New()

	watcherA := newTestClient(hub, 8)
	watcherB := newTestClient(hub, 8)
	hub.RegisterClient(watcherA)
	hub.RegisterClient(watcherB)
	hub.JoinRoom(watcherA, orgA)
	hub.JoinRoom(watcherB, orgB)

	require.NoError(t, hub.Broadcast(serviceEvent(orgA, uuid.NewString())))

	receiveEvent(t, watcherA)
	assertNoEvent(t, watcherB)
}

func TestHub_DeliveryOrderWithinRoom(t *testing.T) {
	hub := startHub(t)
	orgID := uuid.New()

	client := newTestClient(hub, 16)
	hub.RegisterClient(client)
	hub.JoinRoom(client, orgID)

	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for _, id := range ids {
		require.NoError(t, hub.Broadcast(serviceEvent(orgID, id)))
	}

	for _, want := range ids {
		event := receiveEvent(t, client)
		payload, ok := event.Payload.(domain.ServiceUpdatedPayload)
		require.True(t, ok)
		assert.Equal(t, want, payload.ServiceID)
	}
}

func TestHub_RegisteredButNotJoinedReceivesNothing(t *testing.T) {
	hub := startHub(t)
	orgID := uuid.New()

	client := newTestClient(hub, 8)
	hub.RegisterClient(client)

	require.NoError(t, hub.Broadcast(serviceEvent(orgID, uuid.NewString())))

	assertNoEvent(t, client)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomCount())
}

func TestHub_BroadcastToEmptyRoomIsNoOp(t *testing.T) {
	hub := startHub(t)

	require.NoError(t, hub.Broadcast(serviceEvent(uuid.New(), uuid.NewString())))

	// The loop must stay healthy afterwards.
	orgID := uuid.New()
	client := newTestClient(hub, 8)
	hub.RegisterClient(client)
	hub.JoinRoom(client, orgID)

	require.NoError(t, hub.Broadcast(serviceEvent(orgID, uuid.NewString())))
	receiveEvent(t, client)
}

func TestHub_JoinRoomMovesClientBetweenRooms(t *testing.T) {
	hub := startHub(t)
	orgA := uuid.New()
	orgB := uuid.New()

	client := newTestClient(hub, 8)
	hub.RegisterClient(client)

	hub.JoinRoom(client, orgA)
	assert.Equal(t, 1, hub.RoomSize(orgA))

	hub.JoinRoom(client, orgB)
	assert.Equal(t, 0, hub.RoomSize(orgA), "client must leave the old room")
	assert.Equal(t, 1, hub.RoomSize(orgB))

	// Events for the old room no longer reach the client.
	require.NoError(t, hub.Broadcast(serviceEvent(orgA, uuid.NewString())))
	assertNoEvent(t, client)

	require.NoError(t, hub.Broadcast(serviceEvent(orgB, uuid.NewString())))
	receiveEvent(t, client)
}

func TestHub_LeaveRoomKeepsConnection(t *testing.T) {
	hub := startHub(t)
	orgID := uuid.New()

	client := newTestClient(hub, 8)
	hub.RegisterClient(client)
	hub.JoinRoom(client, orgID)

	hub.LeaveRoom(client)

	assert.Equal(t, 0, hub.RoomCount(), "empty room must be reclaimed")
	assert.Equal(t, 1, hub.ClientCount())

	require.NoError(t, hub.Broadcast(serviceEvent(orgID, uuid.NewString())))
	assertNoEvent(t, client)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := startHub(t)
	orgID := uuid.New()

	client := newTestClient(hub, 8)
	hub.RegisterClient(client)
	hub.JoinRoom(client, orgID)

	hub.UnregisterClient(client)
	hub.UnregisterClient(client)

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomSize(orgID))

	_, ok := <-client.Send
	assert.False(t, ok, "send channel must be closed")
}

func TestHub_JoinAfterUnregisterIsIgnored(t *testing.T) {
	hub := startHub(t)
	orgID := uuid.New()

	client := newTestClient(hub, 8)
	hub.RegisterClient(client)
	hub.UnregisterClient(client)

	hub.JoinRoom(client, orgID)

	assert.Equal(t, 0, hub.RoomSize(orgID))
}

func TestHub_StalledClientIsEvicted(t *testing.T) {
	hub := startHub(t)
	orgID := uuid.New()

	stalled := newTestClient(hub, 1)
	healthy := newTestClient(hub, 8)
	hub.RegisterClient(stalled)
	hub.RegisterClient(healthy)
	hub.JoinRoom(stalled, orgID)
	hub.JoinRoom(healthy, orgID)

	// Nothing drains the stalled client's channel, so the second event
	// overflows its buffer and the hub must drop the connection.
	require.NoError(t, hub.Broadcast(serviceEvent(orgID, uuid.NewString())))
	require.NoError(t, hub.Broadcast(serviceEvent(orgID, uuid.NewString())))

	receiveEvent(t, healthy)
	receiveEvent(t, healthy)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond, "stalled client should be unregistered")
	assert.Equal(t, 1, hub.RoomSize(orgID))
}

func TestHub_BroadcastDuringDisconnectsDoesNotPanic(t *testing.T) {
	hub := startHub(t)
	orgID := uuid.New()

	// Small buffers so broadcasts also trip the eviction path while the
	// clients are being torn down from another goroutine.
	clients := make([]*Client, 500)
	for i := range clients {
		clients[i] = newTestClient(hub, 1)
		hub.RegisterClient(clients[i])
		hub.JoinRoom(clients[i], orgID)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, client := range clients {
			hub.UnregisterClient(client)
		}
	}()

	for i := 0; i < 200; i++ {
		require.NoError(t, hub.Broadcast(serviceEvent(orgID, uuid.NewString())))
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("unregister goroutine did not finish")
	}

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0 && hub.RoomCount() == 0
	}, time.Second, 10*time.Millisecond)

	// The delivery loop must still be alive.
	survivor := newTestClient(hub, 8)
	hub.RegisterClient(survivor)
	hub.JoinRoom(survivor, orgID)
	require.NoError(t, hub.Broadcast(serviceEvent(orgID, uuid.NewString())))
	receiveEvent(t, survivor)
}

func TestHub_ShutdownClosesAllClients(t *testing.T) {
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = newTestClient(hub, 8)
		hub.RegisterClient(clients[i])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	assert.Equal(t, 0, hub.ClientCount())
	for _, client := range clients {
		_, ok := <-client.Send
		assert.False(t, ok, "send channel must be closed on shutdown")
	}
}
