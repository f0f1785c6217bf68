//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"streamchat/internal/config"
	"streamchat/internal/domain"
	"streamchat/internal/repository/postgres"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a PostgreSQL container and returns a migrated
// database connection.
func setupPostgres(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	// Wait for PostgreSQL to be fully ready
	time.Sleep(2 * time.Second)

	db, err := config.NewPostgresConnection(ctx, connStr)
	require.NoError(t, err, "failed to connect to PostgreSQL")

	err = runMigrations(db)
	require.NoError(t, err, "failed to run migrations")

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS stream_keys (
			id             TEXT PRIMARY KEY,
			owner_id       TEXT NOT NULL,
			owner_username TEXT NOT NULL,
			key_hash       TEXT NOT NULL,
			revoked        BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS moderation_log (
			id           TEXT PRIMARY KEY,
			room_id      TEXT NOT NULL,
			action       TEXT NOT NULL,
			moderator_id TEXT NOT NULL,
			target_id    TEXT,
			message_id   TEXT,
			reason       TEXT,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	_, err := db.Exec(schema)
	return err
}

func TestStreamKeyRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := setupPostgres(t)
	defer cleanup()

	repo := postgres.NewStreamKeyRepository(db)
	ctx := context.Background()

	key := &domain.StreamKey{
		ID:            uuid.NewString(),
		OwnerID:       "owner-1",
		OwnerUsername: "streamer",
		KeyHash:       "$2a$10$fakehashfakehashfakehash",
	}

	t.Run("create_and_get", func(t *testing.T) {
		err := repo.Create(ctx, key)
		require.NoError(t, err)
		assert.False(t, key.CreatedAt.IsZero(), "expected created_at populated from the database")

		got, err := repo.GetByID(ctx, key.ID)
		require.NoError(t, err)
		assert.Equal(t, key.OwnerID, got.OwnerID)
		assert.Equal(t, key.KeyHash, got.KeyHash)
		assert.False(t, got.Revoked)
	})

	t.Run("duplicate_id_rejected", func(t *testing.T) {
		dup := *key
		err := repo.Create(ctx, &dup)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("revoke", func(t *testing.T) {
		err := repo.Revoke(ctx, key.ID)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, key.ID)
		require.NoError(t, err)
		assert.True(t, got.Revoked)

		err = repo.Revoke(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrStreamKeyNotFound)
	})

	t.Run("list", func(t *testing.T) {
		keys, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})
}

func TestModerationLogRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := setupPostgres(t)
	defer cleanup()

	repo := postgres.NewModerationLogRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		err := repo.Append(ctx, &domain.ModerationRecord{
			ID:          uuid.NewString(),
			RoomID:      "stream_abc",
			Action:      "timeout",
			ModeratorID: "mod-1",
			TargetID:    fmt.Sprintf("user-%d", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	t.Run("recent_by_room_newest_first", func(t *testing.T) {
		records, err := repo.RecentByRoom(ctx, "stream_abc", 3)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "user-4", records[0].TargetID)
		assert.Equal(t, "user-2", records[2].TargetID)
	})

	t.Run("other_rooms_excluded", func(t *testing.T) {
		records, err := repo.RecentByRoom(ctx, "elsewhere", 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
