package chat

import (
	"math"
	"time"

	"streamchat/internal/domain"
	"streamchat/internal/observability"

	"github.com/google/uuid"
)

const maxMessageLength = 1000

// Send runs body through the room's admission pipeline and, on acceptance,
// records the message in history and fans it out to the room. Rejections
// are returned to the caller and never affect other members.
func (s *Service) Send(roomID, userID, body, replyTo string) (*domain.ChatMessage, error) {
	if len(body) == 0 || len(body) > maxMessageLength {
		return nil, domain.ErrInvalidInput
	}

	room, err := s.registry.Get(roomID)
	if err != nil {
		observability.ChatAdmissionRejections.WithLabelValues("room_not_found").Inc()
		return nil, err
	}

	msg, err := room.admit(userID, body, replyTo, s.filter)
	if err != nil {
		observability.ChatAdmissionRejections.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	observability.ChatMessagesAccepted.WithLabelValues(room.ID).Inc()
	s.broadcaster.Broadcast(room.ID, domain.NewEvent(domain.NewMessagePayload{Message: msg}))
	return msg, nil
}

// admit applies the admission checks in order under the room lock,
// short-circuiting on the first failure. An accepted message is appended
// to history before admit returns, so no message is ever broadcast without
// being recorded.
func (r *Room) admit(userID, body, replyTo string, filter *WordFilter) (*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[userID]
	if !ok {
		return nil, domain.ErrNotInRoom
	}
	if member.Banned {
		return nil, domain.ErrBanned
	}

	ts := now()

	// Mute expiry is observed lazily, at the next send attempt.
	if member.Muted {
		if ts.Before(member.MuteExpiry) {
			return nil, domain.ErrMuted
		}
		member.Muted = false
		member.MuteExpiry = time.Time{}
	}

	exempt := member.IsModerator()

	if r.settings.SlowMode && !exempt {
		if last, ok := r.lastChatMessageByLocked(userID); ok {
			interval := time.Duration(r.settings.SlowModeInterval) * time.Second
			if elapsed := ts.Sub(last.Timestamp); elapsed < interval {
				retry := int(math.Ceil((interval - elapsed).Seconds()))
				return nil, &domain.SlowModeError{RetryAfter: retry}
			}
		}
	}

	if r.settings.SubscriberOnly && !exempt && !member.HasRole(domain.RoleSubscriber) {
		return nil, domain.ErrSubscriberOnly
	}

	if r.settings.FollowerOnly && !exempt {
		required := time.Duration(r.settings.FollowerTimeRequired) * time.Minute
		if member.FollowedAt.IsZero() || ts.Sub(member.FollowedAt) < required {
			return nil, domain.ErrFollowerOnly
		}
	}

	if r.settings.EmoteOnly && !exempt && !isEmoteOnly(body) {
		return nil, domain.ErrEmoteOnly
	}

	filtered, changed := filter.Apply(body, r.settings.FilteredWords)

	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    r.ID,
		UserID:    member.ID,
		Username:  member.Username,
		Body:      filtered,
		Kind:      domain.MessageKindChat,
		ReplyTo:   replyTo,
		Timestamp: ts,
	}
	if changed {
		msg.Moderated = true
		msg.ModerationReason = "contained filtered words"
	}

	r.appendLocked(msg)
	return copyMessage(msg), nil
}

func (r *Room) lastChatMessageByLocked(userID string) (*domain.ChatMessage, bool) {
	for i := len(r.history) - 1; i >= 0; i-- {
		msg := r.history[i]
		if msg.Kind == domain.MessageKindChat && msg.UserID == userID {
			return msg, true
		}
	}
	return nil, false
}

func rejectionReason(err error) string {
	switch {
	case err == domain.ErrNotInRoom:
		return "not_in_room"
	case err == domain.ErrBanned:
		return "banned"
	case err == domain.ErrMuted:
		return "muted"
	case err == domain.ErrSubscriberOnly:
		return "subscriber_only"
	case err == domain.ErrFollowerOnly:
		return "follower_only"
	case err == domain.ErrEmoteOnly:
		return "emote_only"
	case err == domain.ErrInvalidInput:
		return "invalid_input"
	default:
		if _, ok := err.(*domain.SlowModeError); ok {
			return "slow_mode"
		}
		return "other"
	}
}
