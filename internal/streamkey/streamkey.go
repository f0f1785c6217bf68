// Package streamkey issues and verifies publish credentials. A key is
// only ever shown in plaintext at issue time; the directory stores a
// bcrypt hash.
package streamkey

import (
	"context"
	"fmt"
	"strings"

	"streamchat/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "live"

// Service issues and verifies stream keys against a directory store.
type Service struct {
	store domain.StreamKeyStore
}

// NewService creates a stream key service over store.
func NewService(store domain.StreamKeyStore) *Service {
	return &Service{store: store}
}

// Issue mints a key for the given owner and records its hash. The returned
// plaintext has the form "live_<id>_<secret>" and cannot be recovered
// later.
func (s *Service) Issue(ctx context.Context, ownerID, ownerUsername string) (string, *domain.StreamKey, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	secret := strings.ReplaceAll(uuid.NewString(), "-", "")

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash stream key: %w", err)
	}

	key := &domain.StreamKey{
		ID:            id,
		OwnerID:       ownerID,
		OwnerUsername: ownerUsername,
		KeyHash:       string(hash),
	}
	if err := s.store.Create(ctx, key); err != nil {
		return "", nil, fmt.Errorf("failed to store stream key: %w", err)
	}

	plaintext := fmt.Sprintf("%s_%s_%s", keyPrefix, id, secret)
	return plaintext, key, nil
}

// Verify checks a presented plaintext key against the directory and
// returns the matching record.
func (s *Service) Verify(ctx context.Context, presented string) (*domain.StreamKey, error) {
	parts := strings.SplitN(presented, "_", 3)
	if len(parts) != 3 || parts[0] != keyPrefix {
		return nil, domain.ErrStreamKeyNotFound
	}

	key, err := s.store.GetByID(ctx, parts[1])
	if err != nil {
		return nil, err
	}
	if key.Revoked {
		return nil, domain.ErrStreamKeyRevoked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(parts[2])); err != nil {
		return nil, domain.ErrStreamKeyNotFound
	}
	return key, nil
}

// Revoke disables a key by id.
func (s *Service) Revoke(ctx context.Context, id string) error {
	return s.store.Revoke(ctx, id)
}

// List returns every directory entry.
func (s *Service) List(ctx context.Context) ([]*domain.StreamKey, error) {
	return s.store.List(ctx)
}
