package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"streamchat/internal/domain"
)

func TestModerationLogStore_RecentByRoom(t *testing.T) {
	store := NewModerationLogStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.Append(ctx, &domain.ModerationRecord{
			ID:        fmt.Sprintf("rec%d", i),
			RoomID:    "lobby",
			Action:    "timeout",
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := store.Append(ctx, &domain.ModerationRecord{ID: "other", RoomID: "elsewhere", Action: "ban"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := store.RecentByRoom(ctx, "lobby", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Newest first.
	if records[0].ID != "rec4" || records[2].ID != "rec2" {
		t.Errorf("unexpected ordering: %s .. %s", records[0].ID, records[2].ID)
	}
}

func TestModerationLogStore_CopiesRecords(t *testing.T) {
	store := NewModerationLogStore()
	ctx := context.Background()

	original := &domain.ModerationRecord{ID: "rec1", RoomID: "lobby", Action: "ban"}
	if err := store.Append(ctx, original); err != nil {
		t.Fatalf("append: %v", err)
	}
	original.Action = "mutated"

	records, err := store.RecentByRoom(ctx, "lobby", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if records[0].Action != "ban" {
		t.Errorf("expected stored copy unaffected by caller mutation, got %q", records[0].Action)
	}
}
