package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapAppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "streamview.db")

	database, err := Bootstrap(path)
	require.NoError(t, err)
	defer database.Close()

	var tables int
	require.NoError(t, database.QueryRow(
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name IN ('settings', 'recent_sources')",
	).Scan(&tables))
	assert.Equal(t, 2, tables)

	applied, err := RunMigrations(context.Background(), database)
	require.NoError(t, err)
	assert.Empty(t, applied)
}
