//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientauth/internal/platform/postgres"
	"clientauth/pkg/testutil/containers"
)

func TestMigrator_UpDownAgainstPostgres(t *testing.T) {
	pg := containers.SharedPostgres(t)
	ctx := context.Background()

	m, err := postgres.NewMigrator(pg.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-applying is a no-op.
	require.NoError(t, m.Up())

	require.NoError(t, m.Down())
	var exists bool
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'accounts')`).Scan(&exists))
	assert.False(t, exists)

	require.NoError(t, m.Up())
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'accounts')`).Scan(&exists))
	assert.True(t, exists)
}

func TestConnect_PingsPool(t *testing.T) {
	pg := containers.SharedPostgres(t)

	pool, err := postgres.Connect(context.Background(), pg.URL, 1)
	require.NoError(t, err)
	defer pool.Close()

	assert.NoError(t, pool.Ping(context.Background()))
}
