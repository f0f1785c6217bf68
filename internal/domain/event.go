package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names an outbound event. The set is closed: every variant has
// exactly one payload type, enforced by the EventPayload marker interface.
type EventType string

const (
	EventRegistered       EventType = "registered"
	EventRoomJoined       EventType = "room-joined"
	EventUserJoined       EventType = "user-joined"
	EventUserLeft         EventType = "user-left"
	EventNewMessage       EventType = "new-message"
	EventMessageModerated EventType = "message-moderated"
	EventUserBanned       EventType = "user-banned"
	EventUserTimedOut     EventType = "user-timed-out"
	EventModeration       EventType = "moderation"
	EventError            EventType = "error"
)

// Event is a typed outbound event delivered to room members or to a
// targeted user connection.
type Event struct {
	Type EventType    `json:"type"`
	Data EventPayload `json:"data"`
}

// EventPayload is implemented by every outbound payload variant.
type EventPayload interface {
	eventType() EventType
}

type RegisteredPayload struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type RoomJoinedPayload struct {
	RoomID         string         `json:"room_id"`
	User           PublicUser     `json:"user"`
	RecentMessages []*ChatMessage `json:"recent_messages"`
	UserCount      int            `json:"user_count"`
}

type UserJoinedPayload struct {
	RoomID string     `json:"room_id"`
	User   PublicUser `json:"user"`
}

type UserLeftPayload struct {
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type NewMessagePayload struct {
	Message *ChatMessage `json:"message"`
}

type MessageModeratedPayload struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
	Reason    string `json:"reason,omitempty"`
}

type UserBannedPayload struct {
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Reason    string `json:"reason,omitempty"`
	UserCount int    `json:"user_count"`
}

type UserTimedOutPayload struct {
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Duration int       `json:"duration"` // seconds
	Expiry   time.Time `json:"expiry"`
}

// ModerationPayload is the targeted notice sent to the user a moderation
// action was applied to.
type ModerationPayload struct {
	RoomID   string    `json:"room_id"`
	Action   string    `json:"action"`
	Reason   string    `json:"reason,omitempty"`
	Duration int       `json:"duration,omitempty"` // seconds
	Expiry   time.Time `json:"expiry,omitempty"`
}

type ErrorPayload struct {
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"` // seconds, slow-mode only
}

func (RegisteredPayload) eventType() EventType       { return EventRegistered }
func (RoomJoinedPayload) eventType() EventType       { return EventRoomJoined }
func (UserJoinedPayload) eventType() EventType       { return EventUserJoined }
func (UserLeftPayload) eventType() EventType         { return EventUserLeft }
func (NewMessagePayload) eventType() EventType       { return EventNewMessage }
func (MessageModeratedPayload) eventType() EventType { return EventMessageModerated }
func (UserBannedPayload) eventType() EventType       { return EventUserBanned }
func (UserTimedOutPayload) eventType() EventType     { return EventUserTimedOut }
func (ModerationPayload) eventType() EventType       { return EventModeration }
func (ErrorPayload) eventType() EventType            { return EventError }

// NewEvent pairs a payload with its event type.
func NewEvent(payload EventPayload) Event {
	return Event{Type: payload.eventType(), Data: payload}
}

// NewErrorEvent builds the targeted rejection event for err.
func NewErrorEvent(err error) Event {
	payload := ErrorPayload{Message: err.Error()}
	if slow, ok := err.(*SlowModeError); ok {
		payload.RetryAfter = slow.RetryAfter
	}
	return NewEvent(payload)
}

// UnmarshalJSON decodes an event into the payload variant matching its
// type tag, rejecting unknown types. Needed when events cross nodes over
// the message broker.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var payload EventPayload
	switch raw.Type {
	case EventRegistered:
		payload = &RegisteredPayload{}
	case EventRoomJoined:
		payload = &RoomJoinedPayload{}
	case EventUserJoined:
		payload = &UserJoinedPayload{}
	case EventUserLeft:
		payload = &UserLeftPayload{}
	case EventNewMessage:
		payload = &NewMessagePayload{}
	case EventMessageModerated:
		payload = &MessageModeratedPayload{}
	case EventUserBanned:
		payload = &UserBannedPayload{}
	case EventUserTimedOut:
		payload = &UserTimedOutPayload{}
	case EventModeration:
		payload = &ModerationPayload{}
	case EventError:
		payload = &ErrorPayload{}
	default:
		return fmt.Errorf("unknown event type %q", raw.Type)
	}

	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", raw.Type, err)
		}
	}

	e.Type = raw.Type
	e.Data = payload
	return nil
}

// Broadcaster delivers events to room members or to a single user's
// connections. It is the only seam between the chat core and the concrete
// real-time transport. Sends are fire-and-forget: a slow or disconnected
// receiver must never stall processing for other members.
type Broadcaster interface {
	Broadcast(roomID string, event Event)
	SendToUser(userID string, event Event)
	// RemoveFromRoom forces a user's connections out of a room, used when
	// a ban terminates membership.
	RemoveFromRoom(roomID, userID string)
}
