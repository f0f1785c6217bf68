package handler

import (
	"context"
	"log/slog"
	"net/http"

	"streamchat/internal/chat"
	"streamchat/internal/domain"
	"streamchat/internal/identity"
	"streamchat/internal/streamkey"
	ws "streamchat/internal/websocket"

	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades chat connections and resolves optional
// credentials presented at connect time.
type WebSocketHandler struct {
	hub      *ws.Hub
	chatSvc  *chat.Service
	provider identity.Provider
	keys     *streamkey.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigins is
// the comma-separated origin allowlist; empty allows all (development).
func NewWebSocketHandler(hub *ws.Hub, chatSvc *chat.Service, provider identity.Provider, keys *streamkey.Service, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		chatSvc:  chatSvc,
		provider: provider,
		keys:     keys,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// HandleConnection handles WebSocket upgrade. Identity is optional here:
// an anonymous viewer registers over the socket, a token or stream key
// yields a verified identity that wins over client-supplied fields.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	verified, err := h.resolveIdentity(r)
	if err != nil {
		http.Error(w, `{"error":"Invalid credential"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	// The request context dies when this handler returns; the hijacked
	// connection outlives it.
	client := ws.NewClient(context.Background(), h.hub, conn, h.chatSvc, verified)
	go client.WritePump()
	go client.ReadPump()
}

func (h *WebSocketHandler) resolveIdentity(r *http.Request) (*identity.Identity, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return h.provider.Verify(r.Context(), token)
	}

	// A valid publish credential identifies the broadcaster.
	if presented := r.URL.Query().Get("stream_key"); presented != "" {
		key, err := h.keys.Verify(r.Context(), presented)
		if err != nil {
			return nil, err
		}
		return &identity.Identity{
			UserID:          key.OwnerID,
			Username:        key.OwnerUsername,
			DisplayName:     key.OwnerUsername,
			Roles:           []string{domain.RoleBroadcaster},
			AllowedToStream: true,
		}, nil
	}

	return nil, nil
}
