// Package memory provides map-backed store implementations used when no
// database is configured, and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"streamchat/internal/domain"
)

// StreamKeyStore implements domain.StreamKeyStore in process memory.
type StreamKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*domain.StreamKey
}

// NewStreamKeyStore creates an empty in-memory stream key directory.
func NewStreamKeyStore() *StreamKeyStore {
	return &StreamKeyStore{keys: make(map[string]*domain.StreamKey)}
}

func (s *StreamKeyStore) Create(_ context.Context, key *domain.StreamKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	copied := *key
	s.keys[key.ID] = &copied
	return nil
}

func (s *StreamKeyStore) GetByID(_ context.Context, id string) (*domain.StreamKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, domain.ErrStreamKeyNotFound
	}
	copied := *key
	return &copied, nil
}

func (s *StreamKeyStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return domain.ErrStreamKeyNotFound
	}
	key.Revoked = true
	return nil
}

func (s *StreamKeyStore) List(_ context.Context) ([]*domain.StreamKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.StreamKey, 0, len(s.keys))
	for _, key := range s.keys {
		copied := *key
		out = append(out, &copied)
	}
	return out, nil
}
