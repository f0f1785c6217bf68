package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"streamchat/internal/chat"
	"streamchat/internal/domain"
	"streamchat/internal/identity"
	"streamchat/internal/observability"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 4096
)

// Command is one inbound frame on a chat connection.
type Command struct {
	Type        string `json:"type"` // register, join, message, moderate, leave
	UserID      string `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	RoomID      string `json:"room_id,omitempty"`
	StreamKey   string `json:"stream_key,omitempty"`
	Body        string `json:"body,omitempty"`
	ReplyTo     string `json:"reply_to,omitempty"`
	Action      string `json:"action,omitempty"`
	TargetID    string `json:"target_id,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	Duration    int    `json:"duration,omitempty"` // seconds
	Reason      string `json:"reason,omitempty"`
}

// Client is one WebSocket connection. A connection binds an identity once
// via the register command and may then join any number of rooms.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	chatSvc *chat.Service

	// verified is the identity resolved from a presented credential at
	// upgrade time, or nil for anonymous viewers. Roles are only ever
	// taken from here, never from the client frame.
	verified *identity.Identity

	userID      string
	username    string
	displayName string
	roles       []string
	registered  bool

	// joined is guarded by the hub mutex.
	joined map[string]struct{}

	writeMu   sync.Mutex
	closed    atomic.Bool
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// NewClient wraps an upgraded connection.
func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn, chatSvc *chat.Service, verified *identity.Identity) *Client {
	clientCtx, cancel := context.WithCancel(ctx)
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		chatSvc:   chatSvc,
		verified:  verified,
		joined:    make(map[string]struct{}),
		ctx:       clientCtx,
		ctxCancel: cancel,
	}
}

// ReadPump reads commands until the connection dies, then runs the
// disconnect path: an implicit leave for every joined room, exactly once.
func (c *Client) ReadPump() {
	defer func() {
		c.ctxCancel()
		for _, roomID := range c.hub.RoomsOf(c) {
			c.chatSvc.Leave(roomID, c.userID)
		}
		c.hub.Unbind(c)
		c.closeConnection()
		observability.WebSocketConnectionsActive.Dec()
	}()

	observability.WebSocketConnectionsActive.Inc()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set read deadline", slog.String("error", err.Error()))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error",
					slog.String("error", err.Error()),
					slog.String("user_id", c.userID))
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(frame, &cmd); err != nil {
			c.sendEvent(domain.NewErrorEvent(domain.ErrInvalidInput))
			continue
		}
		c.handleCommand(&cmd)
	}
}

func (c *Client) handleCommand(cmd *Command) {
	if cmd.Type == "register" {
		c.handleRegister(cmd)
		return
	}
	if !c.registered {
		c.sendEvent(domain.NewErrorEvent(domain.ErrNotRegistered))
		return
	}

	switch cmd.Type {
	case "join":
		c.handleJoin(cmd)
	case "message":
		c.handleMessage(cmd)
	case "moderate":
		c.handleModerate(cmd)
	case "leave":
		c.chatSvc.Leave(cmd.RoomID, c.userID)
		c.hub.Unsubscribe(c, cmd.RoomID)
	default:
		c.sendEvent(domain.NewErrorEvent(domain.ErrInvalidInput))
	}
}

// handleRegister establishes the identity bound to this connection for the
// rest of its lifetime. A verified credential wins over client-supplied
// fields. A second register on an already-bound connection is refused:
// the identity, once bound, holds until the connection closes.
func (c *Client) handleRegister(cmd *Command) {
	if c.registered {
		c.sendEvent(domain.NewErrorEvent(domain.ErrAlreadyRegistered))
		return
	}

	switch {
	case c.verified != nil:
		c.userID = c.verified.UserID
		c.username = c.verified.Username
		c.displayName = c.verified.DisplayName
		c.roles = c.verified.Roles
	default:
		c.userID = cmd.UserID
		if c.userID == "" {
			c.userID = uuid.NewString()
		}
		c.username = cmd.Username
		c.roles = []string{domain.RoleViewer}
	}
	if cmd.DisplayName != "" {
		c.displayName = cmd.DisplayName
	}
	if c.displayName == "" {
		c.displayName = c.username
	}
	if c.username == "" {
		c.sendEvent(domain.NewErrorEvent(domain.ErrInvalidInput))
		return
	}

	c.registered = true
	c.hub.Bind(c, c.userID)
	c.sendEvent(domain.NewEvent(domain.RegisteredPayload{
		UserID:      c.userID,
		Username:    c.username,
		DisplayName: c.displayName,
	}))
}

func (c *Client) handleJoin(cmd *Command) {
	ident := domain.ChatUser{
		ID:          c.userID,
		Username:    c.username,
		DisplayName: c.displayName,
		Roles:       c.roles,
	}
	if c.verified != nil {
		ident.FollowedAt = c.verified.FollowedAt
	}

	result, err := c.chatSvc.Join(cmd.RoomID, cmd.StreamKey, ident)
	if err != nil {
		c.sendEvent(domain.NewErrorEvent(err))
		return
	}

	c.hub.Subscribe(c, result.RoomID)
	c.sendEvent(domain.NewEvent(domain.RoomJoinedPayload{
		RoomID:         result.RoomID,
		User:           result.User.Public(),
		RecentMessages: result.RecentMessages,
		UserCount:      result.UserCount,
	}))
}

func (c *Client) handleMessage(cmd *Command) {
	if _, err := c.chatSvc.Send(cmd.RoomID, c.userID, cmd.Body, cmd.ReplyTo); err != nil {
		c.rejectOrLog(err, cmd.RoomID)
	}
}

func (c *Client) handleModerate(cmd *Command) {
	req := chat.ModerationRequest{
		Action:    cmd.Action,
		TargetID:  cmd.TargetID,
		MessageID: cmd.MessageID,
		Duration:  time.Duration(cmd.Duration) * time.Second,
		Reason:    cmd.Reason,
	}
	if err := c.chatSvc.Moderate(c.ctx, cmd.RoomID, c.userID, req); err != nil {
		c.rejectOrLog(err, cmd.RoomID)
	}
}

// rejectOrLog surfaces err to this connection only. Rejections are normal
// traffic; anything else is logged as well.
func (c *Client) rejectOrLog(err error, roomID string) {
	if !domain.IsRejection(err) {
		slog.Error("command failed",
			slog.String("error", err.Error()),
			slog.String("room_id", roomID),
			slog.String("user_id", c.userID))
	}
	c.sendEvent(domain.NewErrorEvent(err))
}

// sendEvent queues a targeted event for this connection only.
func (c *Client) sendEvent(event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal event",
			slog.String("error", err.Error()),
			slog.String("type", string(event.Type)))
		return
	}
	select {
	case c.send <- data:
	default:
		observability.WebSocketSendDrops.Inc()
		c.closeConnection()
	}
}

// WritePump pumps queued events to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.writeMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeMessage writes one frame in a thread-safe manner.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// closeConnection closes the underlying connection exactly once.
func (c *Client) closeConnection() {
	if c.closed.CompareAndSwap(false, true) && c.conn != nil {
		c.writeMu.Lock()
		c.conn.Close()
		c.writeMu.Unlock()
	}
}
