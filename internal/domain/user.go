package domain

import "time"

// Recognized role names. Roles are handed to this service by the identity
// collaborator at join time and are not re-verified here.
const (
	RoleViewer      = "viewer"
	RoleSubscriber  = "subscriber"
	RoleModerator   = "moderator"
	RoleAdmin       = "admin"
	RoleBroadcaster = "broadcaster"
)

// ChatUser is a room-scoped membership record. It exists only while the
// user is a member of that specific room.
type ChatUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Roles       []string  `json:"roles"`
	Color       string    `json:"color"`
	JoinedAt    time.Time `json:"joined_at"`
	FollowedAt  time.Time `json:"followed_at,omitempty"`
	Banned      bool      `json:"-"`
	Muted       bool      `json:"-"`
	MuteExpiry  time.Time `json:"-"`
}

// HasRole reports whether the user's role set contains role.
func (u *ChatUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsModerator reports whether the user may apply moderation actions.
func (u *ChatUser) IsModerator() bool {
	return u.HasRole(RoleModerator) || u.HasRole(RoleAdmin) || u.HasRole(RoleBroadcaster)
}

// Public returns the fields of the user that may be broadcast to a room.
func (u *ChatUser) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Color:       u.Color,
	}
}

// PublicUser carries the identity fields safe to share with other members.
type PublicUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
}
