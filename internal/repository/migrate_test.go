package repository

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_EveryUpHasADown(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	for {
		up, _, err := src.ReadUp(version)
		require.NoError(t, err, "up migration %d", version)
		body, err := io.ReadAll(up)
		up.Close()
		require.NoError(t, err)
		assert.NotEmpty(t, body)

		down, _, err := src.ReadDown(version)
		require.NoError(t, err, "down migration %d", version)
		down.Close()

		version, err = src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		require.NoError(t, err)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	resetDB(t)

	require.NoError(t, Migrate(context.Background(), testPool))
	require.NoError(t, Migrate(context.Background(), testPool))

	var version int
	require.NoError(t, testPool.QueryRow(context.Background(), `SELECT version FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 1, version)
}
