package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotRegistered     = errors.New("identity not registered")
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrRoomNotFound      = errors.New("room not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNotInRoom         = errors.New("user is not in this room")
	ErrBanned            = errors.New("you are banned from this room")
	ErrMuted             = errors.New("you are muted in this room")
	ErrSubscriberOnly    = errors.New("room is in subscriber-only mode")
	ErrFollowerOnly      = errors.New("room is in follower-only mode")
	ErrEmoteOnly         = errors.New("room is in emote-only mode")
	ErrNotModerator      = errors.New("insufficient permission")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStreamKeyRevoked  = errors.New("stream key revoked")
	ErrStreamKeyNotFound = errors.New("stream key not found")
)

// SlowModeError is returned when a sender violates a room's slow-mode
// interval. RetryAfter is the remaining wait in whole seconds, rounded up.
type SlowModeError struct {
	RetryAfter int
}

func (e *SlowModeError) Error() string {
	return fmt.Sprintf("slow mode is enabled, wait %d seconds", e.RetryAfter)
}

// IsRejection reports whether err is one of the admission/moderation
// rejections that should be surfaced to the offending connection only.
func IsRejection(err error) bool {
	var slow *SlowModeError
	if errors.As(err, &slow) {
		return true
	}
	for _, rejection := range []error{
		ErrNotRegistered, ErrAlreadyRegistered, ErrRoomNotFound,
		ErrMessageNotFound, ErrNotInRoom, ErrBanned, ErrMuted,
		ErrSubscriberOnly, ErrFollowerOnly, ErrEmoteOnly,
		ErrNotModerator, ErrInvalidInput,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}
