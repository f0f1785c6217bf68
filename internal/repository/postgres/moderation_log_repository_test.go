package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"streamchat/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerationLogRepository_Append(t *testing.T) {
	t.Run("successful_append", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		createdAt := time.Now()
		mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO moderation_log (id, room_id, action, moderator_id, target_id, message_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)).
			WithArgs("rec-123", "lobby", "ban", "mod-1",
				nullable("user-1"), nullable(""), nullable("abuse"), createdAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewModerationLogRepository(db)
		err = repo.Append(context.Background(), &domain.ModerationRecord{
			ID:          "rec-123",
			RoomID:      "lobby",
			Action:      "ban",
			ModeratorID: "mod-1",
			TargetID:    "user-1",
			Reason:      "abuse",
			CreatedAt:   createdAt,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails_on_database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("INSERT INTO moderation_log").
			WillReturnError(errors.New("connection lost"))

		repo := NewModerationLogRepository(db)
		err = repo.Append(context.Background(), &domain.ModerationRecord{ID: "rec-123"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to append moderation record")
	})
}

func TestModerationLogRepository_RecentByRoom(t *testing.T) {
	t.Run("returns_records_newest_first", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		createdAt := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, room_id, action, moderator_id, target_id, message_id, reason, created_at
		FROM moderation_log
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`)).
			WithArgs("lobby", 50).
			WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "action", "moderator_id", "target_id", "message_id", "reason", "created_at"}).
				AddRow("rec-2", "lobby", "delete", "mod-1", nil, "msg-9", "spam", createdAt).
				AddRow("rec-1", "lobby", "ban", "mod-1", "user-1", nil, nil, createdAt.Add(-time.Minute)))

		repo := NewModerationLogRepository(db)
		records, err := repo.RecentByRoom(context.Background(), "lobby", 50)
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "rec-2", records[0].ID)
		assert.Equal(t, "msg-9", records[0].MessageID)
		assert.Empty(t, records[0].TargetID)

		assert.Equal(t, "ban", records[1].Action)
		assert.Equal(t, "user-1", records[1].TargetID)
		assert.Empty(t, records[1].Reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns_empty_slice_for_quiet_room", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT id, room_id, action").
			WithArgs("quiet", 50).
			WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "action", "moderator_id", "target_id", "message_id", "reason", "created_at"}))

		repo := NewModerationLogRepository(db)
		records, err := repo.RecentByRoom(context.Background(), "quiet", 50)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
