package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	mw "github.com/raviro/statuspage-backend/internal/adapters/primary/http/middleware"
	ws "github.com/raviro/statuspage-backend/internal/adapters/primary/websocket"
	"github.com/raviro/statuspage-backend/internal/config"
)

// WebSocketHandler upgrades HTTP requests to WebSocket connections and hands
// them to the hub. Authentication is optional: anonymous viewers of a public
// status page connect without a token.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	timing   ws.Timing
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *ws.Hub, cfg *config.Config, logger *slog.Logger) *WebSocketHandler {
	timing := ws.DefaultTiming()
	if cfg.WebSocket.PongWait > 0 {
		timing.PongWait = cfg.WebSocket.PongWait
	}
	if cfg.WebSocket.PingInterval > 0 {
		timing.PingPeriod = cfg.WebSocket.PingInterval
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin:     makeOriginChecker(cfg, logger),
		},
		timing: timing,
		logger: logger.With("handler", "websocket"),
	}
}

// makeOriginChecker builds the origin check for WebSocket upgrades. In
// development every origin is accepted; in production the origin must match
// an entry in WS_ALLOWED_ORIGINS, where a "*." prefix matches any subdomain.
func makeOriginChecker(cfg *config.Config, logger *slog.Logger) func(r *http.Request) bool {
	if cfg.IsDevelopment() {
		return func(r *http.Request) bool { return true }
	}

	allowed := cfg.WebSocket.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients do not send an Origin header.
			return true
		}

		parsed, err := url.Parse(origin)
		if err != nil {
			logger.Warn("rejecting websocket upgrade with malformed origin", "origin", origin)
			return false
		}

		host := parsed.Hostname()
		for _, entry := range allowed {
			if entry == origin || entry == host {
				return true
			}
			if suffix, ok := strings.CutPrefix(entry, "*."); ok && strings.HasSuffix(host, "."+suffix) {
				return true
			}
		}

		logger.Warn("rejecting websocket upgrade from disallowed origin", "origin", origin)
		return false
	}
}

// HandleConnection handles GET /ws
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	client := ws.NewClient(h.hub, conn, h.timing, h.logger)

	if claims, ok := mw.GetClaims(r.Context()); ok {
		h.logger.Info("websocket client connected",
			"client_id", client.ID,
			"user_id", claims.UserID,
		)
	} else {
		h.logger.Info("websocket client connected", "client_id", client.ID, "anonymous", true)
	}

	h.hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()
}
