package chat

import "sync"

// RoomStore owns the mapping from room id (and from stream key) to room
// state. It is the only structure in the core requiring a global
// mutual-exclusion discipline; all other state is per-room.
type RoomStore interface {
	Get(roomID string) (*Room, bool)
	// GetOrCreate returns the room for roomID, calling create under the
	// store lock when absent. The bool reports whether a room was created,
	// and at most one room is ever created per id under concurrent calls.
	GetOrCreate(roomID string, create func() *Room) (*Room, bool)
	ByStreamKey(streamKey string) (*Room, bool)
	Delete(roomID string)
	All() []*Room
}

// MemoryRoomStore is the in-memory RoomStore used in v1. Rooms live only
// in process memory.
type MemoryRoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	byKey map[string]string // stream key -> room id
}

// NewMemoryRoomStore creates an empty in-memory room store.
func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{
		rooms: make(map[string]*Room),
		byKey: make(map[string]string),
	}
}

func (s *MemoryRoomStore) Get(roomID string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	return room, ok
}

func (s *MemoryRoomStore) GetOrCreate(roomID string, create func() *Room) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room, ok := s.rooms[roomID]; ok {
		return room, false
	}
	room := create()
	s.rooms[room.ID] = room
	if room.StreamKey != "" {
		s.byKey[room.StreamKey] = room.ID
	}
	return room, true
}

func (s *MemoryRoomStore) ByStreamKey(streamKey string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[streamKey]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[id]
	return room, ok
}

func (s *MemoryRoomStore) Delete(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	delete(s.rooms, roomID)
	if room.StreamKey != "" {
		delete(s.byKey, room.StreamKey)
	}
}

func (s *MemoryRoomStore) All() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	return out
}
