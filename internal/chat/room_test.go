package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"streamchat/internal/domain"
)

func TestRoom_MembershipCount(t *testing.T) {
	room := newRoom("r1", "r1", "", false)

	for i := 0; i < 5; i++ {
		user := viewer(fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i))
		_, count, err := room.AddMember(&user)
		if err != nil {
			t.Fatalf("add member: %v", err)
		}
		if count != i+1 {
			t.Fatalf("expected count %d after add, got %d", i+1, count)
		}
	}

	_, count, removed := room.RemoveMember("u2")
	if !removed || count != 4 {
		t.Fatalf("expected removal with count 4, got removed=%v count=%d", removed, count)
	}

	// Removing an absent member is a no-op.
	_, count, removed = room.RemoveMember("u2")
	if removed || count != 4 {
		t.Fatalf("repeated remove should be a no-op, got removed=%v count=%d", removed, count)
	}
}

func TestRoom_ColorAssignment(t *testing.T) {
	room := newRoom("r1", "r1", "", false)

	u1 := viewer("u1", "alice")
	stored, _, _ := room.AddMember(&u1)
	if stored.Color == "" {
		t.Fatal("expected a color from the palette")
	}
	first := stored.Color

	// Same identity gets the same color on rejoin.
	room.RemoveMember("u1")
	u1again := viewer("u1", "alice")
	stored, _, _ = room.AddMember(&u1again)
	if stored.Color != first {
		t.Errorf("expected stable color for same user id, got %q then %q", first, stored.Color)
	}

	// A caller-supplied color is kept.
	u2 := viewer("u2", "bob")
	u2.Color = "#123456"
	stored, _, _ = room.AddMember(&u2)
	if stored.Color != "#123456" {
		t.Errorf("expected supplied color to be kept, got %q", stored.Color)
	}
}

func TestRoom_HistoryCapFIFO(t *testing.T) {
	room := newRoom("r1", "r1", "", false)

	for i := 0; i < historyCap+25; i++ {
		room.AppendMessage(&domain.ChatMessage{
			ID:   fmt.Sprintf("m%d", i),
			Kind: domain.MessageKindChat,
			Body: fmt.Sprintf("msg %d", i),
		})
	}

	if got := room.HistoryLen(); got != historyCap {
		t.Fatalf("expected history capped at %d, got %d", historyCap, got)
	}

	// Oldest entries were evicted first.
	recent := room.RecentMessages(historyCap)
	if recent[0].ID != "m25" {
		t.Errorf("expected oldest surviving entry m25, got %s", recent[0].ID)
	}
	if recent[len(recent)-1].ID != fmt.Sprintf("m%d", historyCap+24) {
		t.Errorf("expected newest entry m%d, got %s", historyCap+24, recent[len(recent)-1].ID)
	}
}

func TestRoom_RecentMessagesLimit(t *testing.T) {
	room := newRoom("r1", "r1", "", false)
	for i := 0; i < 80; i++ {
		room.AppendMessage(&domain.ChatMessage{ID: fmt.Sprintf("m%d", i), Kind: domain.MessageKindChat})
	}

	recent := room.RecentMessages(replayLimit)
	if len(recent) != replayLimit {
		t.Fatalf("expected %d messages, got %d", replayLimit, len(recent))
	}
	if recent[0].ID != "m30" {
		t.Errorf("expected window to start at m30, got %s", recent[0].ID)
	}
}

func TestRoom_RedactMessageInPlace(t *testing.T) {
	room := newRoom("r1", "r1", "", false)
	room.AppendMessage(&domain.ChatMessage{ID: "m1", Kind: domain.MessageKindChat, Body: "first"})
	room.AppendMessage(&domain.ChatMessage{ID: "m2", Kind: domain.MessageKindChat, Body: "second"})

	msg, ok := room.RedactMessage("m1", removedPlaceholder, "spam")
	if !ok {
		t.Fatal("expected message to be found")
	}
	if msg.Body != removedPlaceholder || !msg.Moderated || msg.ModerationReason != "spam" {
		t.Errorf("unexpected redacted message: %+v", msg)
	}

	// History length and ordering are unaffected.
	if room.HistoryLen() != 2 {
		t.Errorf("expected history length 2, got %d", room.HistoryLen())
	}
	recent := room.RecentMessages(10)
	if recent[0].ID != "m1" || recent[1].ID != "m2" {
		t.Error("expected ordering preserved after redaction")
	}

	if _, ok := room.RedactMessage("missing", removedPlaceholder, ""); ok {
		t.Error("expected redaction of unknown id to fail")
	}
}

func TestRoom_RecentMessagesDetachedFromRedaction(t *testing.T) {
	room := newRoom("r1", "r1", "", false)
	room.AppendMessage(&domain.ChatMessage{ID: "m1", Kind: domain.MessageKindChat, Body: "hello"})

	snapshot := room.RecentMessages(10)
	redacted, ok := room.RedactMessage("m1", removedPlaceholder, "spam")
	if !ok {
		t.Fatal("expected message to be found")
	}

	// The snapshot taken before the redaction keeps the original body.
	if snapshot[0].Body != "hello" {
		t.Errorf("redaction leaked into an earlier snapshot: %q", snapshot[0].Body)
	}

	// Writes to a returned copy never reach history.
	redacted.Body = "tampered"
	stored, _ := room.FindMessage("m1")
	if stored.Body != removedPlaceholder {
		t.Errorf("caller mutation reached history: %q", stored.Body)
	}
}

func TestRoom_ConcurrentRedactionAndReplay(t *testing.T) {
	room := newRoom("r1", "r1", "", false)
	for i := 0; i < 100; i++ {
		room.AppendMessage(&domain.ChatMessage{
			ID:   fmt.Sprintf("m%d", i),
			Kind: domain.MessageKindChat,
			Body: fmt.Sprintf("msg %d", i),
		})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			room.RedactMessage(fmt.Sprintf("m%d", i), removedPlaceholder, "spam")
		}
	}()

	// Replay marshaling runs against live redactions, as it does when a
	// connection joins mid-moderation.
	for i := 0; i < 100; i++ {
		if _, err := json.Marshal(room.RecentMessages(replayLimit)); err != nil {
			t.Fatalf("marshal replay: %v", err)
		}
	}
	wg.Wait()
}

func TestRoom_AddMemberRefusesBannedIdentity(t *testing.T) {
	room := newRoom("r1", "r1", "", false)
	room.RecordBan("u1", "spam")

	user := viewer("u1", "alice")
	_, count, err := room.AddMember(&user)
	if err != domain.ErrBanned {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
	if count != 0 || room.MemberCount() != 0 {
		t.Errorf("banned identity gained a membership entry, count=%d", room.MemberCount())
	}
	if reason, banned := room.BanReason("u1"); !banned || reason != "spam" {
		t.Errorf("expected ban record retained, got %q banned=%v", reason, banned)
	}
}

func TestRoom_ConcurrentMembershipAndHistory(t *testing.T) {
	room := newRoom("r1", "r1", "", false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := viewer(fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i))
			room.AddMember(&user)
			room.AppendMessage(&domain.ChatMessage{
				ID:     fmt.Sprintf("m%d", i),
				UserID: user.ID,
				Kind:   domain.MessageKindChat,
			})
		}(i)
	}
	wg.Wait()

	if room.MemberCount() != 50 {
		t.Errorf("expected 50 members, got %d", room.MemberCount())
	}
	if room.HistoryLen() != 50 {
		t.Errorf("expected 50 history entries, got %d", room.HistoryLen())
	}
}
