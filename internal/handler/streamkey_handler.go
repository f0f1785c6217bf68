package handler

import (
	"encoding/json"
	"net/http"

	"streamchat/internal/domain"
	"streamchat/internal/middleware"
	"streamchat/internal/streamkey"

	"github.com/go-chi/chi/v5"
)

// StreamKeyHandler manages the publish-credential directory. All routes
// require an admin identity.
type StreamKeyHandler struct {
	keys *streamkey.Service
}

// NewStreamKeyHandler creates a new stream key handler.
func NewStreamKeyHandler(keys *streamkey.Service) *StreamKeyHandler {
	return &StreamKeyHandler{keys: keys}
}

// IssueStreamKeyRequest names the owner a new key is minted for.
type IssueStreamKeyRequest struct {
	OwnerID       string `json:"owner_id"`
	OwnerUsername string `json:"owner_username"`
}

// Issue mints a new stream key. The plaintext is returned once and never
// stored.
func (h *StreamKeyHandler) Issue(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req IssueStreamKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" || req.OwnerUsername == "" {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	plaintext, key, err := h.keys.Issue(r.Context(), req.OwnerID, req.OwnerUsername)
	if err != nil {
		http.Error(w, `{"error":"Failed to issue stream key"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"key":        plaintext,
		"stream_key": key,
	})
}

// List returns every directory entry (hashes excluded by the model).
func (h *StreamKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	keys, err := h.keys.List(r.Context())
	if err != nil {
		http.Error(w, `{"error":"Failed to list stream keys"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"stream_keys": keys,
	})
}

// Revoke disables a key.
func (h *StreamKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	if err := h.keys.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return false
	}
	user := domain.ChatUser{ID: ident.UserID, Roles: ident.Roles}
	if !user.HasRole(domain.RoleAdmin) {
		http.Error(w, `{"error":"Insufficient permission"}`, http.StatusForbidden)
		return false
	}
	return true
}
