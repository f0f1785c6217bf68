// Package identity defines the collaborator interface that supplies
// verified identity to the chat core. The core trusts the role set handed
// to it at join time and never re-verifies credentials itself.
package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrTokenNotFound = errors.New("unknown identity token")

// Identity is a verified user as supplied by the auth collaborator.
type Identity struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name"`
	Roles           []string  `json:"roles"`
	FollowedAt      time.Time `json:"followed_at,omitempty"`
	AllowedToStream bool      `json:"allowed_to_stream"`
}

// Provider resolves a bearer credential to a verified identity.
type Provider interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// TokenRegistry is an in-memory Provider backed by a token map. It stands
// in for the platform's auth service in single-binary deployments and in
// tests.
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[string]*Identity
}

// NewTokenRegistry creates an empty registry.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[string]*Identity)}
}

// Add registers token as a credential for id.
func (r *TokenRegistry) Add(token string, id *Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = id
}

// Revoke removes a token.
func (r *TokenRegistry) Revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
}

// Verify implements Provider.
func (r *TokenRegistry) Verify(_ context.Context, token string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	copied := *id
	return &copied, nil
}
