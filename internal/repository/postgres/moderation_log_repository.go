package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"streamchat/internal/domain"
)

// ModerationLogRepository implements domain.ModerationLogStore for
// PostgreSQL.
type ModerationLogRepository struct {
	db *sql.DB
}

// NewModerationLogRepository creates a new PostgreSQL moderation log
// repository.
func NewModerationLogRepository(db *sql.DB) *ModerationLogRepository {
	return &ModerationLogRepository{db: db}
}

// Append inserts one audit record.
func (r *ModerationLogRepository) Append(ctx context.Context, record *domain.ModerationRecord) error {
	query := `
		INSERT INTO moderation_log (id, room_id, action, moderator_id, target_id, message_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.RoomID,
		record.Action,
		record.ModeratorID,
		nullable(record.TargetID),
		nullable(record.MessageID),
		nullable(record.Reason),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append moderation record: %w", err)
	}
	return nil
}

// RecentByRoom retrieves the newest audit records for a room, newest
// first.
func (r *ModerationLogRepository) RecentByRoom(ctx context.Context, roomID string, limit int) ([]*domain.ModerationRecord, error) {
	query := `
		SELECT id, room_id, action, moderator_id, target_id, message_id, reason, created_at
		FROM moderation_log
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation log: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.ModerationRecord, 0, limit)
	for rows.Next() {
		record := &domain.ModerationRecord{}
		var targetID, messageID, reason sql.NullString
		if err := rows.Scan(
			&record.ID,
			&record.RoomID,
			&record.Action,
			&record.ModeratorID,
			&targetID,
			&messageID,
			&reason,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan moderation record: %w", err)
		}
		record.TargetID = targetID.String
		record.MessageID = messageID.String
		record.Reason = reason.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate moderation log: %w", err)
	}
	return records, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
