package chat

import (
	"context"
	"log/slog"

	"streamchat/internal/domain"
	"streamchat/internal/observability"

	"github.com/google/uuid"
)

// Service is the chat core facade. It owns join/leave, message admission
// and moderation for every room, and fans out events through the
// Broadcaster without ever blocking on the transport.
type Service struct {
	registry    *Registry
	broadcaster domain.Broadcaster
	filter      *WordFilter
	modLog      domain.ModerationLogStore
}

// NewService wires the chat core together.
func NewService(registry *Registry, broadcaster domain.Broadcaster, filter *WordFilter, modLog domain.ModerationLogStore) *Service {
	return &Service{
		registry:    registry,
		broadcaster: broadcaster,
		filter:      filter,
		modLog:      modLog,
	}
}

// Registry exposes room lookup for the HTTP surface.
func (s *Service) Registry() *Registry {
	return s.registry
}

// JoinResult is returned to the joining connection as the room-joined
// event.
type JoinResult struct {
	RoomID         string
	User           *domain.ChatUser
	RecentMessages []*domain.ChatMessage
	UserCount      int
}

// Join registers presence in a room resolved by roomID or, when streamKey
// is set, by stream key (auto-creating the room). Exactly one of the two
// must be supplied.
func (s *Service) Join(roomID, streamKey string, identity domain.ChatUser) (*JoinResult, error) {
	if identity.ID == "" || identity.Username == "" {
		return nil, domain.ErrNotRegistered
	}

	var room *Room
	switch {
	case streamKey != "" && roomID == "":
		room = s.registry.GetOrCreateByStreamKey(streamKey)
	case roomID != "" && streamKey == "":
		room = s.registry.GetOrCreate(roomID)
	default:
		return nil, domain.ErrInvalidInput
	}

	user := identity
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	if len(user.Roles) == 0 {
		user.Roles = []string{domain.RoleViewer}
	}

	// Recent history is captured before the join announcement so the
	// replay does not duplicate events the connection is about to receive.
	recent := room.RecentMessages(replayLimit)

	stored, count, err := room.AddMember(&user)
	if err != nil {
		observability.ChatAdmissionRejections.WithLabelValues("banned").Inc()
		return nil, err
	}

	s.systemMessage(room, domain.MessageKindSystem, stored.DisplayName+" joined the chat")
	s.broadcaster.Broadcast(room.ID, domain.NewEvent(domain.UserJoinedPayload{
		RoomID: room.ID,
		User:   stored.Public(),
	}))

	slog.Info("user joined room",
		slog.String("room_id", room.ID),
		slog.String("user_id", stored.ID),
		slog.Int("user_count", count))

	return &JoinResult{
		RoomID:         room.ID,
		User:           stored,
		RecentMessages: recent,
		UserCount:      count,
	}, nil
}

// Leave removes the membership record and announces the departure. It is
// idempotent: a repeated leave on an already-absent member is a no-op, so
// an abrupt disconnect can safely run it once per joined room.
func (s *Service) Leave(roomID, userID string) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return
	}

	user, count, removed := room.RemoveMember(userID)
	if !removed {
		return
	}

	s.broadcaster.Broadcast(room.ID, domain.NewEvent(domain.UserLeftPayload{
		RoomID:      room.ID,
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
	}))
	s.systemMessage(room, domain.MessageKindSystem, user.DisplayName+" left the chat")

	slog.Info("user left room",
		slog.String("room_id", room.ID),
		slog.String("user_id", userID),
		slog.Int("user_count", count))

	s.registry.ScheduleEvictionIfEmpty(room.ID)
}

func (s *Service) systemMessage(room *Room, kind domain.MessageKind, body string) {
	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		Username:  "system",
		Body:      body,
		Kind:      kind,
		Timestamp: now(),
	}
	room.AppendMessage(msg)
	s.broadcaster.Broadcast(room.ID, domain.NewEvent(domain.NewMessagePayload{Message: copyMessage(msg)}))
}

func (s *Service) logModeration(ctx context.Context, record *domain.ModerationRecord) {
	if s.modLog == nil {
		return
	}
	record.ID = uuid.NewString()
	record.CreatedAt = now()
	if err := s.modLog.Append(ctx, record); err != nil {
		slog.Error("failed to write moderation audit record",
			slog.String("error", err.Error()),
			slog.String("room_id", record.RoomID),
			slog.String("action", record.Action))
	}
}
