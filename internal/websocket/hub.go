package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"streamchat/internal/domain"
	"streamchat/internal/observability"
)

// Hub tracks which connections belong to which user id and which rooms,
// and fans typed events out to them. It implements domain.Broadcaster.
//
// Delivery is fire-and-forget: every client has a buffered send channel,
// and a client that cannot keep up is dropped rather than allowed to stall
// the room.
type Hub struct {
	mu sync.RWMutex

	// rooms maps room id to the connections subscribed to it.
	rooms map[string]map[*Client]struct{}

	// users maps user id to that user's connections.
	users map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		users: make(map[string]map[*Client]struct{}),
	}
}

// Bind associates a connection with a registered user id so targeted
// events can reach it.
func (h *Hub) Bind(client *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[userID] == nil {
		h.users[userID] = make(map[*Client]struct{})
	}
	h.users[userID][client] = struct{}{}
	client.userID = userID
}

// Unbind removes a connection from all user and room indexes. Called once
// when the connection closes.
func (h *Hub) Unbind(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.userID != "" {
		h.dropFromSet(h.users, client.userID, client)
	}
	for roomID := range client.joined {
		h.dropFromSet(h.rooms, roomID, client)
	}
}

// Subscribe adds the connection to a room's fan-out set.
func (h *Hub) Subscribe(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	client.joined[roomID] = struct{}{}
}

// Unsubscribe removes the connection from a room's fan-out set. Safe to
// call for rooms the connection never joined.
func (h *Hub) Unsubscribe(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropFromSet(h.rooms, roomID, client)
	delete(client.joined, roomID)
}

// RoomsOf returns the rooms the connection is currently subscribed to.
func (h *Hub) RoomsOf(client *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(client.joined))
	for roomID := range client.joined {
		out = append(out, roomID)
	}
	return out
}

// Broadcast delivers event to every connection subscribed to roomID.
func (h *Hub) Broadcast(roomID string, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal event",
			slog.String("error", err.Error()),
			slog.String("type", string(event.Type)))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, data)
	}
	observability.WebSocketEventsSent.WithLabelValues(string(event.Type)).Add(float64(len(targets)))
}

// SendToUser delivers event to every connection bound to userID.
func (h *Hub) SendToUser(userID string, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal event",
			slog.String("error", err.Error()),
			slog.String("type", string(event.Type)))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.users[userID]))
	for client := range h.users[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, data)
	}
	observability.WebSocketEventsSent.WithLabelValues(string(event.Type)).Add(float64(len(targets)))
}

// RemoveFromRoom forces every connection of userID out of roomID, used
// when a ban terminates membership.
func (h *Hub) RemoveFromRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.users[userID] {
		h.dropFromSet(h.rooms, roomID, client)
		delete(client.joined, roomID)
	}
}

// deliver hands data to the client's write pump without blocking. A full
// send buffer means the receiver is stalled or gone; close it out.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		observability.WebSocketSendDrops.Inc()
		slog.Warn("dropping slow websocket connection",
			slog.String("user_id", client.userID))
		client.closeConnection()
	}
}

func (h *Hub) dropFromSet(index map[string]map[*Client]struct{}, key string, client *Client) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(index, key)
	}
}
