package domain

import "time"

// MessageKind distinguishes user chat from server-generated entries.
type MessageKind string

const (
	MessageKindChat       MessageKind = "message"
	MessageKindSystem     MessageKind = "system"
	MessageKindModeration MessageKind = "moderation"
)

// ChatMessage is a single history entry. Moderator-initiated redaction
// rewrites the stored entry's Body in place and sets Moderated, keeping
// ordering and history length unaffected; anything handed to transports
// or handlers is a detached copy of the stored entry.
type ChatMessage struct {
	ID               string      `json:"id"`
	RoomID           string      `json:"room_id"`
	UserID           string      `json:"user_id"`
	Username         string      `json:"username"`
	Body             string      `json:"body"`
	Kind             MessageKind `json:"kind"`
	ReplyTo          string      `json:"reply_to,omitempty"`
	Moderated        bool        `json:"moderated"`
	ModerationReason string      `json:"moderation_reason,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
}
