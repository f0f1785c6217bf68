package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"streamchat/internal/chat"
	"streamchat/internal/domain"
	"streamchat/internal/middleware"
	"streamchat/internal/observability"

	"github.com/go-chi/chi/v5"
)

// RoomHandler serves the rooms REST surface.
type RoomHandler struct {
	chatSvc *chat.Service
	modLog  domain.ModerationLogStore
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(chatSvc *chat.Service, modLog domain.ModerationLogStore) *RoomHandler {
	return &RoomHandler{chatSvc: chatSvc, modLog: modLog}
}

// List returns every active room.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms := h.chatSvc.Registry().Rooms()
	out := make([]*domain.Room, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Snapshot())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"rooms": out,
	})
}

// Get returns one room with its recent messages.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.chatSvc.Registry().Get(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"Room not found"}`, http.StatusNotFound)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"room":            room.Snapshot(),
		"settings":        room.Settings(),
		"recent_messages": room.RecentMessages(limit),
	})
}

// UpdateSettings replaces a room's admission policy. Requires a verified
// identity that moderates the room.
func (h *RoomHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}

	room, err := h.chatSvc.Registry().Get(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"Room not found"}`, http.StatusNotFound)
		return
	}

	user := domain.ChatUser{ID: ident.UserID, Roles: ident.Roles}
	if !user.IsModerator() {
		http.Error(w, `{"error":"Insufficient permission"}`, http.StatusForbidden)
		return
	}

	var settings domain.RoomSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if settings.SlowMode && settings.SlowModeInterval <= 0 {
		http.Error(w, `{"error":"slow_mode_interval must be positive"}`, http.StatusBadRequest)
		return
	}

	room.UpdateSettings(settings)
	observability.FromContext(r.Context()).Info("room settings updated",
		slog.String("room_id", room.ID),
		slog.String("user_id", ident.UserID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"settings": room.Settings(),
	})
}

// ModerationLog returns the newest audit entries for a room.
func (h *RoomHandler) ModerationLog(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}
	user := domain.ChatUser{ID: ident.UserID, Roles: ident.Roles}
	if !user.IsModerator() {
		http.Error(w, `{"error":"Insufficient permission"}`, http.StatusForbidden)
		return
	}

	records, err := h.modLog.RecentByRoom(r.Context(), chi.URLParam(r, "id"), 100)
	if err != nil {
		observability.FromContext(r.Context()).Error("failed to read moderation log",
			slog.String("error", err.Error()))
		http.Error(w, `{"error":"Failed to retrieve moderation log"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"records": records,
	})
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrMessageNotFound), errors.Is(err, domain.ErrStreamKeyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotModerator), errors.Is(err, domain.ErrBanned):
		status = http.StatusForbidden
	}
	http.Error(w, `{"error":"`+err.Error()+`"}`, status)
}
