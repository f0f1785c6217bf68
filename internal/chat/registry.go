package chat

import (
	"log/slog"
	"time"

	"streamchat/internal/domain"
	"streamchat/internal/observability"

	"github.com/google/uuid"
)

const (
	// streamRoomPrefix marks a stream-bound room id. Rooms with this
	// prefix are tied to a stream key and exempt from idle eviction.
	streamRoomPrefix = "stream_"

	// DefaultEvictionGrace is how long a non-persistent room may sit empty
	// before it and its history are deleted.
	DefaultEvictionGrace = 10 * time.Minute
)

// Registry owns room lookup and lifecycle: creation on demand, deletion of
// empty non-persistent rooms after a grace window.
type Registry struct {
	store         RoomStore
	evictionGrace time.Duration
}

// NewRegistry creates a registry over store. A non-positive grace falls
// back to DefaultEvictionGrace.
func NewRegistry(store RoomStore, evictionGrace time.Duration) *Registry {
	if evictionGrace <= 0 {
		evictionGrace = DefaultEvictionGrace
	}
	return &Registry{store: store, evictionGrace: evictionGrace}
}

// GetOrCreateByStreamKey returns the active room bound to streamKey,
// creating and registering it when absent. The check-then-create is
// serialized by the store, so concurrent calls for the same key never
// produce two rooms.
func (g *Registry) GetOrCreateByStreamKey(streamKey string) *Room {
	roomID := streamRoomPrefix + streamKey
	room, created := g.store.GetOrCreate(roomID, func() *Room {
		return newRoom(roomID, streamKey, streamKey, true)
	})
	if created {
		g.welcome(room)
		observability.ChatRoomsActive.Inc()
		slog.Info("room created",
			slog.String("room_id", room.ID),
			slog.String("stream_key", streamKey))
	}
	return room
}

// GetOrCreate returns the room with roomID, creating an ad-hoc
// (non-stream) room when absent. Ad-hoc rooms are subject to idle
// eviction.
func (g *Registry) GetOrCreate(roomID string) *Room {
	room, created := g.store.GetOrCreate(roomID, func() *Room {
		return newRoom(roomID, roomID, "", false)
	})
	if created {
		g.welcome(room)
		observability.ChatRoomsActive.Inc()
		slog.Info("room created", slog.String("room_id", room.ID))
	}
	return room
}

// Get returns the room with roomID or domain.ErrRoomNotFound.
func (g *Registry) Get(roomID string) (*Room, error) {
	room, ok := g.store.Get(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Rooms returns every registered room.
func (g *Registry) Rooms() []*Room {
	return g.store.All()
}

// ScheduleEvictionIfEmpty arms the idle-eviction timer for a room whose
// membership just dropped to zero. Membership is re-checked when the timer
// fires, so a join inside the grace window cancels the eviction.
func (g *Registry) ScheduleEvictionIfEmpty(roomID string) {
	room, ok := g.store.Get(roomID)
	if !ok || room.persistent || room.MemberCount() > 0 {
		return
	}

	time.AfterFunc(g.evictionGrace, func() {
		current, ok := g.store.Get(roomID)
		if !ok || current.MemberCount() > 0 {
			return
		}
		g.store.Delete(roomID)
		observability.ChatRoomsActive.Dec()
		slog.Info("evicted idle room", slog.String("room_id", roomID))
	})
}

func (g *Registry) welcome(room *Room) {
	room.AppendMessage(&domain.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		Username:  "system",
		Body:      "Welcome to " + room.Name + "!",
		Kind:      domain.MessageKindSystem,
		Timestamp: now(),
	})
}
