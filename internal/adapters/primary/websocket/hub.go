package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

// Hub is the room registry: it maps organization IDs to the set of
// connections currently watching that organization's status page, and fans
// broadcast events out to them.
//
// Membership changes (register, unregister, join, leave) are mutex-protected
// calls made from connection goroutines. Delivery happens only on the single
// Run loop, which gives every room FIFO delivery in publish order.
type Hub struct {
	// rooms maps organization IDs to subscribed clients. Rooms are created
	// lazily on first join and dropped when their last member leaves.
	rooms map[uuid.UUID]map[*Client]bool

	// clients is the set of all connected clients, roomed or not
	clients map[*Client]bool

	// broadcast carries events from publishers to the Run loop
	broadcast chan domain.Event

	// mu protects the clients and rooms maps
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:     make(map[uuid.UUID]map[*Client]bool),
		clients:   make(map[*Client]bool),
		broadcast: make(chan domain.Event, 256),
		logger:    logger.With("component", "websocket_hub"),
	}
}

// Broadcast enqueues an event for fan-out to the event's organization room.
// It never blocks the caller: if the hub is saturated the event is dropped
// and logged. This method implements the ports.EventBroadcaster interface.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"org_id", event.OrganizationID,
		)
		return nil
	}
}

// Run starts the hub's delivery loop and blocks until ctx is cancelled. On
// shutdown every remaining client is unregistered, which closes its send
// channel and lets its write pump deliver a close frame.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// RegisterClient adds a client to the hub. The client is not in any room
// until it sends a join_room message.
func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client registered",
		"connection_id", client.ID,
		"total_connections", total,
	)
}

// UnregisterClient removes a client from the hub and from its room, if any,
// and closes its send channel. Safe to call more than once: leave happens
// exactly once per connection no matter how it dies.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()

	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	h.removeFromRoomLocked(client)
	h.mu.Unlock()

	// Closing the send channel terminates the client's write pump.
	client.CloseSend()

	h.logger.Info("client unregistered", "connection_id", client.ID)
}

// JoinRoom subscribes a client to an organization's room. A client belongs to
// at most one room: joining while subscribed elsewhere leaves the old room
// first, so no connection is ever a member of two rooms at once.
func (h *Hub) JoinRoom(client *Client, orgID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		// Already unregistered; a late join must not resurrect membership.
		return
	}

	h.removeFromRoomLocked(client)

	if h.rooms[orgID] == nil {
		h.rooms[orgID] = make(map[*Client]bool)
	}
	h.rooms[orgID][client] = true
	client.setRoom(orgID)

	h.logger.Debug("client joined room",
		"connection_id", client.ID,
		"org_id", orgID,
		"room_size", len(h.rooms[orgID]),
	)
}

// LeaveRoom removes a client from its current room without disconnecting it.
func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(client)
}

// removeFromRoomLocked drops the client from its room and reclaims the room
// entry when it empties. Callers must hold mu.
func (h *Hub) removeFromRoomLocked(client *Client) {
	orgID, ok := client.Room()
	if !ok {
		return
	}

	if room, exists := h.rooms[orgID]; exists {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, orgID)
		}
	}
	client.clearRoom()
}

// broadcastEvent delivers an event to every client in the organization's
// room. Broadcasting to a missing or empty room is a no-op. A client whose
// send buffer is full is evicted rather than waited on.
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	room, ok := h.rooms[event.OrganizationID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the membership so sends happen without holding the lock; clients
	// joining after this point catch the next event.
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"org_id", event.OrganizationID,
		"client_count", len(clients),
	)

	var stalled []*Client
	for _, client := range clients {
		// trySend tolerates clients that unregistered after the membership
		// copy: a send to a closing connection drops the event instead of
		// panicking the delivery loop.
		if !client.trySend(event) {
			stalled = append(stalled, client)
		}
	}

	for _, client := range stalled {
		h.logger.Warn("client send buffer full, evicting",
			"connection_id", client.ID,
		)
		h.UnregisterClient(client)
	}
}

// closeAll unregisters every client, used during shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.UnregisterClient(client)
	}

	h.logger.Info("hub shut down", "closed_connections", len(clients))
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of active rooms
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// RoomSize returns the number of clients subscribed to an organization
func (h *Hub) RoomSize(orgID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[orgID])
}
