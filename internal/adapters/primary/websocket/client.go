package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raviro/statuspage-backend/internal/core/domain"
)

const (
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second

	// maxMessageSize bounds inbound control messages; clients only ever send
	// small join/leave/ping frames.
	maxMessageSize = 1024
)

// Timing holds the liveness deadlines for a connection. The ping period must
// be shorter than the pong wait or healthy connections get reaped.
type Timing struct {
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
}

// DefaultTiming returns the standard connection deadlines.
func DefaultTiming() Timing {
	return Timing{
		WriteWait:  defaultWriteWait,
		PongWait:   defaultPongWait,
		PingPeriod: (defaultPongWait * 9) / 10,
	}
}

// Client represents a single WebSocket connection registered with the hub.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// Send is the buffered channel of outbound events drained by WritePump.
	// The hub closes it on unregister, which ends the write pump. All sends
	// and the close go through trySend/CloseSend so they never race.
	Send chan domain.Event

	// ID identifies the connection in logs
	ID uuid.UUID

	timing Timing

	// pong carries application-level pong requests from the read pump to the
	// write pump, which is the only goroutine allowed to write to Conn.
	pong chan struct{}

	// mu guards the room fields and the send channel's closed state.
	mu         sync.Mutex
	room       uuid.UUID
	inRoom     bool
	sendClosed bool

	closeOnce sync.Once

	logger *slog.Logger
}

// NewClient wraps an upgraded connection for use with the hub.
func NewClient(hub *Hub, conn *websocket.Conn, timing Timing, logger *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan domain.Event, 256),
		ID:     id,
		timing: timing,
		pong:   make(chan struct{}, 1),
		logger: logger.With("connection_id", id),
	}
}

// CloseSend closes the outbound channel exactly once. Marking the channel
// closed under mu keeps a concurrent trySend from hitting a closed channel.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.sendClosed = true
		close(c.Send)
		c.mu.Unlock()
	})
}

// trySend queues an event for the write pump without blocking. It reports
// false when the buffer is full. A client whose channel is already closed is
// mid-disconnect; the event is silently dropped and the send reports success.
func (c *Client) trySend(event domain.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendClosed {
		return true
	}
	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}

// Room returns the organization the client is subscribed to, if any.
func (c *Client) Room() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.inRoom
}

func (c *Client) setRoom(orgID uuid.UUID) {
	c.mu.Lock()
	c.room = orgID
	c.inRoom = true
	c.mu.Unlock()
}

func (c *Client) clearRoom() {
	c.mu.Lock()
	c.room = uuid.UUID{}
	c.inRoom = false
	c.mu.Unlock()
}

// ClientMessage is the envelope for messages received from the browser.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload carries the organization a client wants to subscribe to.
type JoinRoomPayload struct {
	OrganizationID uuid.UUID `json:"organizationId"`
}

// ReadPump reads control messages from the connection until it errors or
// closes, then unregisters the client. Unregistration runs in the read pump's
// defer, so every connection leaves its room exactly once however it dies.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.timing.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.timing.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("unexpected close", "error", err)
			}
			return
		}
		c.handleIncomingMessage(data)
	}
}

// handleIncomingMessage dispatches a single client message. Malformed or
// unknown messages are logged and ignored rather than killing the connection.
func (c *Client) handleIncomingMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Debug("malformed client message", "error", err)
		return
	}

	switch msg.Type {
	case "join_room":
		var payload JoinRoomPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.OrganizationID == uuid.Nil {
			c.logger.Debug("invalid join_room payload", "error", err)
			return
		}
		c.Hub.JoinRoom(c, payload.OrganizationID)

	case "leave_room":
		c.Hub.LeaveRoom(c)

	case "ping":
		c.sendPong()

	default:
		c.logger.Debug("unknown message type", "type", msg.Type)
	}
}

// sendPong asks the write pump to answer an application-level ping. The read
// pump must never write to Conn itself; gorilla allows one writer only. A
// pending pong already satisfies the ping, so a full channel is fine.
func (c *Client) sendPong() {
	select {
	case c.pong <- struct{}{}:
	default:
	}
}

// WritePump drains the send channel onto the connection and keeps the
// connection alive with periodic pings. It exits when the hub closes the
// send channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.timing.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if !ok {
				// Hub closed the channel; tell the peer we are going away.
				c.Conn.SetWriteDeadline(time.Now().Add(c.timing.WriteWait))
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeJSON(event); err != nil {
				c.logger.Debug("event write failed", "error", err)
				return
			}

		case <-c.pong:
			c.Conn.SetWriteDeadline(time.Now().Add(c.timing.WriteWait))
			if err := c.Conn.WriteJSON(map[string]string{"type": "pong"}); err != nil {
				c.logger.Debug("pong write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.timing.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeJSON(event domain.Event) error {
	c.Conn.SetWriteDeadline(time.Now().Add(c.timing.WriteWait))
	return c.Conn.WriteJSON(event)
}
