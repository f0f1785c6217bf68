package chat

import (
	"hash/fnv"
	"sync"
	"time"

	"streamchat/internal/domain"
)

const (
	// Maximum number of history entries kept per room. Oldest entries are
	// evicted first when the cap is reached.
	historyCap = 1000

	// Number of recent messages replayed to a joining connection.
	replayLimit = 50
)

// colorPalette is the fixed set of display colors assigned to users who
// join without one. The pick is a hash of the user id, so a user keeps the
// same color across rejoins.
var colorPalette = []string{
	"#e91e63", "#9c27b0", "#673ab7", "#3f51b5", "#2196f3",
	"#00bcd4", "#009688", "#4caf50", "#ff9800", "#ff5722",
}

// now is the clock for the chat package. Tests override it to exercise
// time-dependent admission checks.
var now = time.Now

// Room holds the mutable state of a single chat room. All of it is guarded
// by one mutex so concurrent joins, sends and moderation actions against
// the same room are linearized. Different rooms share nothing and proceed
// fully in parallel.
type Room struct {
	ID        string
	Name      string
	StreamKey string
	CreatedAt time.Time

	// persistent marks a stream-bound room, which is exempt from idle
	// eviction.
	persistent bool

	mu           sync.Mutex
	members      map[string]*domain.ChatUser
	banned       map[string]string // user id -> ban reason
	moderators   map[string]struct{}
	history      []*domain.ChatMessage
	settings     domain.RoomSettings
	lastActivity time.Time
}

func newRoom(id, name, streamKey string, persistent bool) *Room {
	ts := now()
	return &Room{
		ID:           id,
		Name:         name,
		StreamKey:    streamKey,
		CreatedAt:    ts,
		persistent:   persistent,
		members:      make(map[string]*domain.ChatUser),
		banned:       make(map[string]string),
		moderators:   make(map[string]struct{}),
		settings:     domain.DefaultRoomSettings(),
		lastActivity: ts,
	}
}

// AddMember registers presence for user, assigning a display color from
// the palette when none was supplied. Returns the stored record and the
// resulting member count. The ban check and the insert share one lock
// acquisition: a ban that lands first always wins.
func (r *Room) AddMember(user *domain.ChatUser) (*domain.ChatUser, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, banned := r.banned[user.ID]; banned {
		return nil, len(r.members), domain.ErrBanned
	}

	if user.Color == "" {
		user.Color = pickColor(user.ID)
	}
	user.JoinedAt = now()
	r.members[user.ID] = user
	if user.IsModerator() {
		r.moderators[user.ID] = struct{}{}
	}
	r.lastActivity = now()
	return user, len(r.members), nil
}

// RemoveMember removes the membership record for userID. It is a no-op on
// an already-absent member, so repeated leaves after a disconnect are safe.
func (r *Room) RemoveMember(userID string) (*domain.ChatUser, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.members[userID]
	if !ok {
		return nil, len(r.members), false
	}
	delete(r.members, userID)
	delete(r.moderators, userID)
	return user, len(r.members), true
}

// Member returns the membership record for userID, if present.
func (r *Room) Member(userID string) (*domain.ChatUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.members[userID]
	return user, ok
}

// MemberCount returns the number of currently-present members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// RecordBan stores a persistent ban record so the same identity is
// rejected on rejoin even after membership removal.
func (r *Room) RecordBan(userID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banned[userID] = reason
}

// BanReason reports whether userID carries a ban record for this room.
func (r *Room) BanReason(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reason, ok := r.banned[userID]
	return reason, ok
}

// AppendMessage appends msg to history, evicting the oldest entry when the
// cap is reached, and bumps the room's last-activity timestamp.
func (r *Room) AppendMessage(msg *domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(msg)
}

func (r *Room) appendLocked(msg *domain.ChatMessage) {
	if len(r.history) >= historyCap {
		drop := len(r.history) - historyCap + 1
		r.history = append(r.history[:0], r.history[drop:]...)
	}
	r.history = append(r.history, msg)
	r.lastActivity = msg.Timestamp
}

// RecentMessages returns up to limit of the newest history entries in
// arrival order. Entries are copies: redaction mutates the stored
// records under the lock, so stored pointers never leave it.
func (r *Room) RecentMessages(limit int) []*domain.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := 0
	if len(r.history) > limit {
		start = len(r.history) - limit
	}
	out := make([]*domain.ChatMessage, len(r.history)-start)
	for i, msg := range r.history[start:] {
		out[i] = copyMessage(msg)
	}
	return out
}

// HistoryLen returns the current history length.
func (r *Room) HistoryLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// LastChatMessageBy returns the most recent message-kind entry authored by
// userID, scanning from the newest end. Used by the slow-mode check.
func (r *Room) LastChatMessageBy(userID string) (*domain.ChatMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.lastChatMessageByLocked(userID); ok {
		return copyMessage(msg), true
	}
	return nil, false
}

// FindMessage locates a history entry by id and returns a copy of it.
func (r *Room) FindMessage(messageID string) (*domain.ChatMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range r.history {
		if msg.ID == messageID {
			return copyMessage(msg), true
		}
	}
	return nil, false
}

// RedactMessage replaces the body of the message with id messageID in
// place, retaining the history entry so ordering and indices are preserved
// for any client that cached positions. Returns a copy of the redacted
// entry.
func (r *Room) RedactMessage(messageID, body, reason string) (*domain.ChatMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range r.history {
		if msg.ID == messageID {
			msg.Body = body
			msg.Moderated = true
			msg.ModerationReason = reason
			return copyMessage(msg), true
		}
	}
	return nil, false
}

// copyMessage detaches an entry from history. Only copies cross the room
// lock boundary; the stored record stays private so redaction can mutate
// it safely.
func copyMessage(msg *domain.ChatMessage) *domain.ChatMessage {
	out := *msg
	return &out
}

// Settings returns a copy of the room's current settings.
func (r *Room) Settings() domain.RoomSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// UpdateSettings replaces the room's settings.
func (r *Room) UpdateSettings(settings domain.RoomSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = settings
}

// Snapshot returns the public view of the room.
func (r *Room) Snapshot() *domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &domain.Room{
		ID:        r.ID,
		Name:      r.Name,
		StreamKey: r.StreamKey,
		Active:    true,
		UserCount: len(r.members),
		CreatedAt: r.CreatedAt,
	}
}

func pickColor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return colorPalette[int(h.Sum32())%len(colorPalette)]
}
