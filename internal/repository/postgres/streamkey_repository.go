package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"streamchat/internal/domain"
)

// StreamKeyRepository implements domain.StreamKeyStore for PostgreSQL.
type StreamKeyRepository struct {
	db *sql.DB
}

// NewStreamKeyRepository creates a new PostgreSQL stream key repository.
func NewStreamKeyRepository(db *sql.DB) *StreamKeyRepository {
	return &StreamKeyRepository{db: db}
}

// Create inserts a new stream key record.
func (r *StreamKeyRepository) Create(ctx context.Context, key *domain.StreamKey) error {
	query := `
		INSERT INTO stream_keys (id, owner_id, owner_username, key_hash, revoked)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		key.ID,
		key.OwnerID,
		key.OwnerUsername,
		key.KeyHash,
		key.Revoked,
	).Scan(&key.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err, "") {
			return fmt.Errorf("stream key %s already exists: %w", key.ID, err)
		}
		return fmt.Errorf("failed to create stream key: %w", err)
	}
	return nil
}

// GetByID retrieves a stream key record by id.
func (r *StreamKeyRepository) GetByID(ctx context.Context, id string) (*domain.StreamKey, error) {
	query := `
		SELECT id, owner_id, owner_username, key_hash, revoked, created_at
		FROM stream_keys
		WHERE id = $1
	`
	key := &domain.StreamKey{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&key.ID,
		&key.OwnerID,
		&key.OwnerUsername,
		&key.KeyHash,
		&key.Revoked,
		&key.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStreamKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream key: %w", err)
	}
	return key, nil
}

// Revoke disables a stream key.
func (r *StreamKeyRepository) Revoke(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE stream_keys SET revoked = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke stream key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check revoke result: %w", err)
	}
	if affected == 0 {
		return domain.ErrStreamKeyNotFound
	}
	return nil
}

// List returns every stream key record, newest first.
func (r *StreamKeyRepository) List(ctx context.Context) ([]*domain.StreamKey, error) {
	query := `
		SELECT id, owner_id, owner_username, key_hash, revoked, created_at
		FROM stream_keys
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stream keys: %w", err)
	}
	defer rows.Close()

	keys := []*domain.StreamKey{}
	for rows.Next() {
		key := &domain.StreamKey{}
		if err := rows.Scan(
			&key.ID,
			&key.OwnerID,
			&key.OwnerUsername,
			&key.KeyHash,
			&key.Revoked,
			&key.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stream key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stream keys: %w", err)
	}
	return keys, nil
}
