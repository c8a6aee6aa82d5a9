//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/voterid/internal/database"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "voterid_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/voterid_test?sslmode=disable", host, port.Port())
}

// TestMigratorIntegration tests the migration functionality
func TestMigratorIntegration(t *testing.T) {
	dsn := startPostgres(t)

	db, err := database.NewPool(database.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	dbName, err := database.DatabaseName(dsn)
	require.NoError(t, err)

	t.Run("Up runs migrations successfully", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, dbName)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Up())
		// second run is a no-op
		require.NoError(t, migrator.Up())

		for _, table := range []string{"stations", "api_keys", "voters", "verification_records", "attempt_counters"} {
			assertTableExists(t, db, table)
		}
	})

	t.Run("Version returns current version", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, dbName)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty, "migration should not be dirty")
		assert.Equal(t, uint(1), version)
	})

	t.Run("api keys cascade with station", func(t *testing.T) {
		var stationID string
		err := db.QueryRow(`
			INSERT INTO stations (id, name, code)
			VALUES (gen_random_uuid(), $1, $2)
			RETURNING id
		`, "Escola Central", "zona-1-secao-1").Scan(&stationID)
		require.NoError(t, err)

		var apiKeyID string
		err = db.QueryRow(`
			INSERT INTO api_keys (id, station_id, name, key_hash, key_prefix, environment)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
			RETURNING id
		`, stationID, "Terminal", "hash123", "vid_test_abc12", "test").Scan(&apiKeyID)
		require.NoError(t, err)

		_, err = db.Exec("DELETE FROM stations WHERE id = $1", stationID)
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM api_keys WHERE id = $1", apiKeyID).Scan(&count))
		assert.Equal(t, 0, count, "API key should be deleted via CASCADE")
	})

	t.Run("Down rolls back", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, dbName)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Down())

		var exists bool
		require.NoError(t, db.QueryRow(`SELECT to_regclass('public.voters') IS NOT NULL`).Scan(&exists))
		assert.False(t, exists)
	})
}

func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)

	require.NoError(t, err)
	assert.True(t, exists, "table %s should exist", tableName)
}
