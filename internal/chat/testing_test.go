package chat

import (
	"sync"
	"testing"
	"time"

	"streamchat/internal/domain"
)

// recordingBroadcaster captures fan-out calls for assertions.
type recordingBroadcaster struct {
	mu       sync.Mutex
	events   []recordedEvent
	removals []string // "roomID/userID"
}

type recordedEvent struct {
	roomID string // broadcast target, empty for targeted sends
	userID string // targeted user, empty for broadcasts
	event  domain.Event
}

func (b *recordingBroadcaster) Broadcast(roomID string, event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{roomID: roomID, event: event})
}

func (b *recordingBroadcaster) SendToUser(userID string, event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{userID: userID, event: event})
}

func (b *recordingBroadcaster) RemoveFromRoom(roomID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removals = append(b.removals, roomID+"/"+userID)
}

// eventsOfType returns every recorded event with the given type.
func (b *recordingBroadcaster) eventsOfType(t domain.EventType) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// newTestService builds a service over in-memory state with no audit log.
func newTestService(t *testing.T) (*Service, *recordingBroadcaster) {
	t.Helper()
	broadcaster := &recordingBroadcaster{}
	registry := NewRegistry(NewMemoryRoomStore(), time.Minute)
	svc := NewService(registry, broadcaster, NewWordFilter([]string{"inappropriate1"}), nil)
	return svc, broadcaster
}

// setClock pins the chat clock to a mutable instant and restores the real
// clock when the test ends.
func setClock(t *testing.T, start time.Time) *time.Time {
	t.Helper()
	current := start
	now = func() time.Time { return current }
	t.Cleanup(func() { now = time.Now })
	return &current
}

func viewer(id, username string) domain.ChatUser {
	return domain.ChatUser{ID: id, Username: username, DisplayName: username, Roles: []string{domain.RoleViewer}}
}

func moderator(id, username string) domain.ChatUser {
	return domain.ChatUser{ID: id, Username: username, DisplayName: username, Roles: []string{domain.RoleModerator}}
}
