package chat

import (
	"context"
	"fmt"
	"time"

	"streamchat/internal/domain"
	"streamchat/internal/observability"
)

// Moderation action names accepted by Moderate.
const (
	ActionDelete  = "delete"
	ActionBan     = "ban"
	ActionTimeout = "timeout"
	ActionUnmute  = "unmute"
)

// removedPlaceholder replaces the body of a deleted message. The history
// entry itself is retained.
const removedPlaceholder = "[message removed by moderator]"

// DefaultTimeout applies when a timeout action carries no duration.
const DefaultTimeout = 300 * time.Second

// ModerationRequest describes one moderation action against a room.
type ModerationRequest struct {
	Action    string
	TargetID  string
	MessageID string
	Duration  time.Duration
	Reason    string
}

// Moderate applies a moderation action on behalf of moderatorID. The
// moderator must be a current member of the room with a moderator-capable
// role; every applied action is appended to the audit log and fanned out
// as system/notification events.
func (s *Service) Moderate(ctx context.Context, roomID, moderatorID string, req ModerationRequest) error {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return err
	}

	moderator, ok := room.Member(moderatorID)
	if !ok || !moderator.IsModerator() {
		return domain.ErrNotModerator
	}

	switch req.Action {
	case ActionDelete:
		err = s.deleteMessage(room, req)
	case ActionBan:
		err = s.ban(room, req)
	case ActionTimeout:
		err = s.timeout(room, req)
	case ActionUnmute:
		err = s.unmute(room, req)
	default:
		return fmt.Errorf("%w: unknown moderation action %q", domain.ErrInvalidInput, req.Action)
	}
	if err != nil {
		return err
	}

	observability.ModerationActions.WithLabelValues(req.Action).Inc()
	s.logModeration(ctx, &domain.ModerationRecord{
		RoomID:      room.ID,
		Action:      req.Action,
		ModeratorID: moderatorID,
		TargetID:    req.TargetID,
		MessageID:   req.MessageID,
		Reason:      req.Reason,
	})
	return nil
}

func (s *Service) deleteMessage(room *Room, req ModerationRequest) error {
	msg, ok := room.RedactMessage(req.MessageID, removedPlaceholder, req.Reason)
	if !ok {
		return domain.ErrMessageNotFound
	}

	s.broadcaster.Broadcast(room.ID, domain.NewEvent(domain.MessageModeratedPayload{
		RoomID:    room.ID,
		MessageID: msg.ID,
		Body:      msg.Body,
		Reason:    req.Reason,
	}))
	return nil
}

func (s *Service) ban(room *Room, req ModerationRequest) error {
	target, count, err := room.applyBan(req.TargetID, req.Reason)
	if err != nil {
		return err
	}

	// Notify the banned connection and force it out before announcing to
	// the room.
	s.broadcaster.SendToUser(target.ID, domain.NewEvent(domain.ModerationPayload{
		RoomID: room.ID,
		Action: ActionBan,
		Reason: req.Reason,
	}))
	s.broadcaster.RemoveFromRoom(room.ID, target.ID)

	s.systemMessage(room, domain.MessageKindModeration, target.DisplayName+" was banned from the room")
	s.broadcaster.Broadcast(room.ID, domain.NewEvent(domain.UserBannedPayload{
		RoomID:    room.ID,
		UserID:    target.ID,
		Username:  target.Username,
		Reason:    req.Reason,
		UserCount: count,
	}))

	s.registry.ScheduleEvictionIfEmpty(room.ID)
	return nil
}

func (s *Service) timeout(room *Room, req ModerationRequest) error {
	duration := req.Duration
	if duration <= 0 {
		duration = DefaultTimeout
	}
	expiry := now().Add(duration)

	target, err := room.applyTimeout(req.TargetID, expiry)
	if err != nil {
		return err
	}

	seconds := int(duration / time.Second)
	s.broadcaster.SendToUser(target.ID, domain.NewEvent(domain.ModerationPayload{
		RoomID:   room.ID,
		Action:   ActionTimeout,
		Reason:   req.Reason,
		Duration: seconds,
		Expiry:   expiry,
	}))

	s.systemMessage(room, domain.MessageKindModeration,
		fmt.Sprintf("%s was timed out for %d seconds", target.DisplayName, seconds))
	s.broadcaster.Broadcast(room.ID, domain.NewEvent(domain.UserTimedOutPayload{
		RoomID:   room.ID,
		UserID:   target.ID,
		Username: target.Username,
		Duration: seconds,
		Expiry:   expiry,
	}))
	return nil
}

func (s *Service) unmute(room *Room, req ModerationRequest) error {
	target, err := room.clearMute(req.TargetID)
	if err != nil {
		return err
	}

	s.broadcaster.SendToUser(target.ID, domain.NewEvent(domain.ModerationPayload{
		RoomID: room.ID,
		Action: ActionUnmute,
	}))
	s.systemMessage(room, domain.MessageKindModeration, target.DisplayName+" was unmuted")
	return nil
}

// applyBan marks the target banned, records the ban for rejoin rejection,
// and removes the membership entry, all under one lock so the transition
// is atomic against concurrent sends.
func (r *Room) applyBan(targetID, reason string) (*domain.ChatUser, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.members[targetID]
	if !ok {
		return nil, len(r.members), domain.ErrNotInRoom
	}
	target.Banned = true
	r.banned[targetID] = reason
	delete(r.members, targetID)
	delete(r.moderators, targetID)
	return target, len(r.members), nil
}

// applyTimeout mutes the target until expiry. Re-applying while already
// muted overwrites the expiry: last write wins, no stacking.
func (r *Room) applyTimeout(targetID string, expiry time.Time) (*domain.ChatUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.members[targetID]
	if !ok {
		return nil, domain.ErrNotInRoom
	}
	target.Muted = true
	target.MuteExpiry = expiry
	return target, nil
}

// clearMute lifts a mute. Unmuting a target that was not muted is treated
// as success.
func (r *Room) clearMute(targetID string) (*domain.ChatUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.members[targetID]
	if !ok {
		return nil, domain.ErrNotInRoom
	}
	target.Muted = false
	target.MuteExpiry = time.Time{}
	return target, nil
}
