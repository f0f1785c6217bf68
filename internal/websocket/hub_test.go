package websocket

import (
	"encoding/json"
	"testing"

	"streamchat/internal/domain"
)

// newTestClient builds a connection-less client whose send buffer can be
// inspected directly.
func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{
		hub:    hub,
		send:   make(chan []byte, buffer),
		joined: make(map[string]struct{}),
	}
}

func receivedType(t *testing.T, client *Client) domain.EventType {
	t.Helper()
	select {
	case data := <-client.send:
		var event domain.Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode delivered event: %v", err)
		}
		return event.Type
	default:
		t.Fatal("expected a delivered event")
		return ""
	}
}

func TestHub_BroadcastReachesSubscribersOnly(t *testing.T) {
	hub := NewHub()
	inRoom := newTestClient(hub, 4)
	outside := newTestClient(hub, 4)
	hub.Bind(inRoom, "u1")
	hub.Bind(outside, "u2")
	hub.Subscribe(inRoom, "lobby")

	hub.Broadcast("lobby", domain.NewEvent(domain.NewMessagePayload{
		Message: &domain.ChatMessage{ID: "m1", Body: "hi"},
	}))

	if got := receivedType(t, inRoom); got != domain.EventNewMessage {
		t.Errorf("expected new-message, got %s", got)
	}
	if len(outside.send) != 0 {
		t.Error("unsubscribed client received a room broadcast")
	}
}

func TestHub_SendToUserReachesAllConnections(t *testing.T) {
	hub := NewHub()
	first := newTestClient(hub, 4)
	second := newTestClient(hub, 4)
	other := newTestClient(hub, 4)
	hub.Bind(first, "u1")
	hub.Bind(second, "u1")
	hub.Bind(other, "u2")

	hub.SendToUser("u1", domain.NewEvent(domain.ModerationPayload{Action: "timeout"}))

	if receivedType(t, first) != domain.EventModeration {
		t.Error("first connection missed the targeted event")
	}
	if receivedType(t, second) != domain.EventModeration {
		t.Error("second connection missed the targeted event")
	}
	if len(other.send) != 0 {
		t.Error("targeted event leaked to another user")
	}
}

func TestHub_RemoveFromRoomStopsDelivery(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, 4)
	hub.Bind(client, "u1")
	hub.Subscribe(client, "lobby")

	hub.RemoveFromRoom("lobby", "u1")

	hub.Broadcast("lobby", domain.NewEvent(domain.NewMessagePayload{
		Message: &domain.ChatMessage{ID: "m1"},
	}))
	if len(client.send) != 0 {
		t.Error("removed client still received room broadcasts")
	}
	if len(hub.RoomsOf(client)) != 0 {
		t.Errorf("expected no joined rooms, got %v", hub.RoomsOf(client))
	}
}

func TestHub_UnbindClearsAllIndexes(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, 4)
	hub.Bind(client, "u1")
	hub.Subscribe(client, "lobby")
	hub.Subscribe(client, "stream_abc")

	hub.Unbind(client)

	hub.Broadcast("lobby", domain.NewEvent(domain.NewMessagePayload{Message: &domain.ChatMessage{ID: "m1"}}))
	hub.SendToUser("u1", domain.NewEvent(domain.ModerationPayload{Action: "ban"}))
	if len(client.send) != 0 {
		t.Error("unbound client still received events")
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	slow := newTestClient(hub, 1)
	healthy := newTestClient(hub, 4)
	hub.Bind(slow, "u1")
	hub.Bind(healthy, "u2")
	hub.Subscribe(slow, "lobby")
	hub.Subscribe(healthy, "lobby")

	event := domain.NewEvent(domain.NewMessagePayload{Message: &domain.ChatMessage{ID: "m1"}})
	hub.Broadcast("lobby", event)
	hub.Broadcast("lobby", event)

	if !slow.closed.Load() {
		t.Error("expected the stalled client to be closed")
	}
	if healthy.closed.Load() {
		t.Error("healthy client must not be affected by a stalled peer")
	}
	if len(healthy.send) != 2 {
		t.Errorf("expected healthy client to hold 2 events, got %d", len(healthy.send))
	}
}

func TestHub_UnsubscribeUnknownRoomIsSafe(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, 4)
	hub.Bind(client, "u1")

	hub.Unsubscribe(client, "never-joined")
	hub.RemoveFromRoom("never-joined", "u1")
}
