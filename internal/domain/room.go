package domain

import (
	"context"
	"time"
)

// Room is a public snapshot of a chat room, as exposed over the rooms API.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StreamKey string    `json:"stream_key,omitempty"`
	Active    bool      `json:"active"`
	UserCount int       `json:"user_count"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomSettings controls message admission policy for a room.
type RoomSettings struct {
	SlowMode             bool     `json:"slow_mode"`
	SlowModeInterval     int      `json:"slow_mode_interval"` // seconds
	SubscriberOnly       bool     `json:"subscriber_only"`
	FollowerOnly         bool     `json:"follower_only"`
	FollowerTimeRequired int      `json:"follower_time_required"` // minutes
	EmoteOnly            bool     `json:"emote_only"`
	FilteredWords        []string `json:"filtered_words"`
}

// DefaultRoomSettings returns the settings a freshly created room starts with.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		SlowModeInterval: 3,
	}
}

// ModerationRecord is an audit entry for a moderation action.
type ModerationRecord struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	Action      string    `json:"action"` // delete, ban, timeout, unmute
	ModeratorID string    `json:"moderator_id"`
	TargetID    string    `json:"target_id,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ModerationLogStore persists moderation actions for audit.
type ModerationLogStore interface {
	Append(ctx context.Context, record *ModerationRecord) error
	RecentByRoom(ctx context.Context, roomID string, limit int) ([]*ModerationRecord, error)
}

// StreamKey is a publish credential record. The key secret is stored hashed;
// the plaintext is only available at issue time.
type StreamKey struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	KeyHash       string    `json:"-"`
	Revoked       bool      `json:"revoked"`
	CreatedAt     time.Time `json:"created_at"`
}

// StreamKeyStore defines the interface for stream key directory access.
type StreamKeyStore interface {
	Create(ctx context.Context, key *StreamKey) error
	GetByID(ctx context.Context, id string) (*StreamKey, error)
	Revoke(ctx context.Context, id string) error
	List(ctx context.Context) ([]*StreamKey, error)
}
