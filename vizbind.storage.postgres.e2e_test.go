//go:build integration

package vizbind

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer starts an ephemeral PostgreSQL and returns its DSN.
func setupPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("vizbind_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	return connStr
}

func TestPostgres_E2E_Contract(t *testing.T) {
	connStr := setupPostgresContainer(t)

	// every subtest gets its own tables
	var n atomic.Int64
	runStorageContract(t, func(t *testing.T) TemplateStorage {
		storage, err := NewPostgresStorage(PostgresConfig{
			ConnectionString: connStr,
			AutoMigrate:      true,
			TablePrefix:      fmt.Sprintf("contract%d_", n.Add(1)),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = storage.Close() })
		return storage
	})
}

func TestPostgres_E2E_Driver(t *testing.T) {
	connStr := setupPostgresContainer(t)
	ctx := context.Background()

	storage, err := OpenStorage(StorageDriverNamePostgres, connStr)
	require.NoError(t, err)
	defer storage.Close()

	engine := MustNew(WithStorage(storage))
	require.NoError(t, engine.SaveTemplate(ctx, &StoredTemplate{
		Name:   "scoreboard",
		Source: `<svg><text data-bind="capitalize(team)"/></svg>`,
		Tags:   []string{"sports"},
	}))

	out, err := engine.RenderStored(ctx, "scoreboard", map[string]any{"team": "ajax"})
	require.NoError(t, err)
	assert.Equal(t, `<svg><text>Ajax</text></svg>`, out)

	t.Run("migrations are idempotent", func(t *testing.T) {
		again, err := OpenStorage(StorageDriverNamePostgres, connStr)
		require.NoError(t, err)
		defer again.Close()

		exists, err := again.Exists(ctx, "scoreboard")
		require.NoError(t, err)
		assert.True(t, exists)

		schema, err := again.(*PostgresStorage).CurrentSchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, schema)
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		require.NoError(t, storage.Save(ctx, &StoredTemplate{Name: "a_b", Source: "<x/>"}))
		require.NoError(t, storage.Save(ctx, &StoredTemplate{Name: "axb", Source: "<x/>"}))

		found, err := storage.List(ctx, &TemplateQuery{NameContains: "_"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a_b"}, names(found))
	})
}
