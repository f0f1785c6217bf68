package memory

import (
	"context"
	"sync"

	"streamchat/internal/domain"
)

// ModerationLogStore implements domain.ModerationLogStore in process
// memory.
type ModerationLogStore struct {
	mu      sync.RWMutex
	records []*domain.ModerationRecord
}

// NewModerationLogStore creates an empty in-memory audit log.
func NewModerationLogStore() *ModerationLogStore {
	return &ModerationLogStore{}
}

func (s *ModerationLogStore) Append(_ context.Context, record *domain.ModerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records = append(s.records, &copied)
	return nil
}

func (s *ModerationLogStore) RecentByRoom(_ context.Context, roomID string, limit int) ([]*domain.ModerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ModerationRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].RoomID == roomID {
			copied := *s.records[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}
