package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway database and returns a migrated store.
func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("journal"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStoreAppendAndRecent(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, entry("0xAAAA000000000000000000000000000000000001", "0x01", base)))
	require.NoError(t, store.Append(ctx, entry("0xbbbb000000000000000000000000000000000002", "", base.Add(time.Minute))))

	all, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Empty(t, all[0].TxHash)
	assert.Equal(t, "0x01", all[1].TxHash)
	assert.True(t, all[1].Time.Equal(base))

	mine, err := store.Recent(ctx, "0xaaaa000000000000000000000000000000000001", 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].Success)
}

func TestPostgresMigrationsAreIdempotent(t *testing.T) {
	store := setupPostgres(t)
	require.NoError(t, migrate(context.Background(), store.pool))
}
