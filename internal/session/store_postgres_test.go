package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/rental-admin-console/internal/config"
	"github.com/vasiliy-maslov/rental-admin-console/internal/db"
	"github.com/vasiliy-maslov/rental-admin-console/internal/session"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Runs against a real database when DB_HOST_TEST is set.
func TestPostgresStore(t *testing.T) {
	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		t.Skip("DB_HOST_TEST not set")
	}

	cfg := config.PostgresConfig{
		Host:            host,
		Port:            envOr("DB_PORT_TEST", "5432"),
		User:            envOr("DB_USER_TEST", "postgres"),
		Password:        envOr("DB_PASSWORD_TEST", "postgres"),
		DBName:          envOr("DB_NAME_TEST", "console_test"),
		SSLMode:         envOr("DB_SSLMODE_TEST", "disable"),
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := db.New(ctx, cfg)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, pg.ApplyMigrations(ctx))
	require.NoError(t, pg.ApplyMigrations(ctx), "second run is a no-op")

	var versionTables int
	require.NoError(t, pg.Pool.QueryRow(ctx, `
		SELECT count(*) FROM information_schema.tables
		WHERE table_schema = 'admin_console' AND table_name = 'console_schema_migrations'`).Scan(&versionTables))
	assert.Equal(t, 1, versionTables, "version table is kept next to the sessions table")

	store := session.NewPostgresStore(pg.Pool)
	s := sampleSession()

	require.NoError(t, store.Save(ctx, s))
	got, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Permissions, got.Permissions)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Load(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
