// Package client is the consumer side of the status page: it hydrates the
// public snapshot over HTTP, subscribes to the organization's room over
// WebSocket and keeps the snapshot current by applying events through the
// domain reducer. The connection reconnects with exponential back-off; while
// disconnected the last known snapshot stays available, stale but rendered.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raviro/statuspage-backend/internal/core/domain"
)

// Connectivity describes the state of the realtime link.
type Connectivity string

const (
	// StatusConnecting is the initial state before the first snapshot.
	StatusConnecting Connectivity = "connecting"
	// StatusLive means events are flowing.
	StatusLive Connectivity = "live"
	// StatusReconnecting means the link dropped and retries are in progress.
	// The snapshot is served from the last known state.
	StatusReconnecting Connectivity = "reconnecting"
	// StatusDisconnected means retries were exhausted or the context ended.
	StatusDisconnected Connectivity = "disconnected"
)

const defaultWriteWait = 10 * time.Second

// Config configures a status page client.
type Config struct {
	// BaseURL is the API server root, e.g. "http://localhost:8080".
	BaseURL string
	// Slug identifies the status page to watch.
	Slug string
	// Token optionally authenticates the connection. Public viewers leave
	// it empty.
	Token string

	// HTTPClient is used for the snapshot fetch. Defaults to a client with a
	// 10 second timeout.
	HTTPClient *http.Client
	// Dialer is used for the WebSocket connection. Defaults to
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// MaxReconnectInterval caps the back-off between reconnect attempts.
	// Defaults to 30 seconds.
	MaxReconnectInterval time.Duration
	// MaxRetries bounds consecutive failed reconnect attempts before the
	// client gives up. Zero means 10.
	MaxRetries uint64

	// OnChange, when set, is called with the new snapshot after every applied
	// event and after every hydrate. Called from the client's goroutine.
	OnChange func(domain.StatusSnapshot)

	Logger *slog.Logger
}

// Client watches one organization's status page.
type Client struct {
	cfg    Config
	orgID  uuid.UUID
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot domain.StatusSnapshot
	state    Connectivity
}

// New creates a client. Run must be called to start it.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: BaseURL is required")
	}
	if cfg.Slug == "" {
		return nil, errors.New("client: Slug is required")
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.MaxReconnectInterval <= 0 {
		cfg.MaxReconnectInterval = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "statuspage_client", "slug", cfg.Slug),
		state:  StatusConnecting,
	}, nil
}

// Snapshot returns the current view state. Safe to call from any goroutine;
// while the link is down it returns the last state received.
func (c *Client) Snapshot() domain.StatusSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Connectivity returns the state of the realtime link.
func (c *Client) Connectivity() Connectivity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Run hydrates the snapshot and keeps it current until ctx is cancelled or
// reconnect attempts are exhausted. It blocks; run it in its own goroutine.
func (c *Client) Run(ctx context.Context) error {
	defer c.setState(StatusDisconnected)

	// First hydrate establishes the organization id the join targets.
	if err := c.hydrate(ctx); err != nil {
		return fmt.Errorf("initial snapshot fetch: %w", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.cfg.MaxRetries), ctx)

	for {
		err := backoff.Retry(func() error {
			return c.connectAndListen(ctx)
		}, policy)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reconnect attempts exhausted: %w", err)
		}

		// connectAndListen returned nil: the session ended after running
		// healthily. Start a fresh back-off window and reconnect.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		policy = backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.cfg.MaxRetries), ctx)
	}
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = c.cfg.MaxReconnectInterval
	b.MaxElapsedTime = 0
	return b
}

// hydrate fetches the public snapshot and replaces the local state. Called
// before the first connect and after every reconnect, since events emitted
// while the link was down are gone for good.
func (c *Client) hydrate(ctx context.Context) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/v1/status/" + url.PathEscape(c.cfg.Slug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("snapshot fetch returned %s", resp.Status)
	}

	var body struct {
		Data domain.StatusSnapshot `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	orgID, err := uuid.Parse(body.Data.Organization.ID)
	if err != nil {
		return fmt.Errorf("snapshot organization id: %w", err)
	}

	c.orgID = orgID
	c.replaceSnapshot(body.Data)
	return nil
}

// connectAndListen runs one WebSocket session: dial, join the room, re-hydrate
// to cover the gap, then apply events until the connection dies. Returns nil
// when the session was healthy before dropping, so the caller resets back-off.
func (c *Client) connectAndListen(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StatusReconnecting)
		c.logger.Warn("websocket dial failed", "error", err)
		return err
	}
	defer conn.Close()

	if err := c.joinRoom(conn); err != nil {
		c.setState(StatusReconnecting)
		return err
	}

	// Hydrate after joining, not before: events arriving during the fetch are
	// buffered on the connection and re-applying them is idempotent.
	if err := c.hydrate(ctx); err != nil {
		c.setState(StatusReconnecting)
		return err
	}

	c.setState(StatusLive)
	c.logger.Info("live", "org_id", c.orgID)

	// Close the connection when ctx ends so the read below unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	healthy := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.setState(StatusReconnecting)
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("connection lost", "error", err)
			if healthy {
				return nil
			}
			return err
		}
		healthy = true
		c.handleMessage(data)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := c.websocketURL()
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.cfg.Dialer.DialContext(ctx, wsURL, nil)
	if resp != nil {
		resp.Body.Close()
	}
	return conn, err
}

func (c *Client) websocketURL() (string, error) {
	parsed, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api/v1/ws"

	if c.cfg.Token != "" {
		query := parsed.Query()
		query.Set("token", c.cfg.Token)
		parsed.RawQuery = query.Encode()
	}

	return parsed.String(), nil
}

type clientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (c *Client) joinRoom(conn *websocket.Conn) error {
	payload, err := json.Marshal(struct {
		OrganizationID uuid.UUID `json:"organizationId"`
	}{OrganizationID: c.orgID})
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(defaultWriteWait))
	return conn.WriteJSON(clientMessage{Type: "join_room", Payload: payload})
}

// handleMessage applies one wire event to the snapshot. Unknown or malformed
// events are logged and dropped; the reducer keeps the state consistent.
func (c *Client) handleMessage(data []byte) {
	event, err := domain.DecodeEvent(data)
	if err != nil {
		c.logger.Debug("dropping event", "error", err)
		return
	}

	c.mu.Lock()
	c.snapshot = c.snapshot.Apply(event)
	next := c.snapshot
	c.mu.Unlock()

	c.notify(next)
}

func (c *Client) replaceSnapshot(snapshot domain.StatusSnapshot) {
	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Client) notify(snapshot domain.StatusSnapshot) {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(snapshot)
	}
}

func (c *Client) setState(state Connectivity) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
