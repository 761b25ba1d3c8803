// Package testutils starts throwaway infrastructure for integration tests.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// PostgresDB is a migrated database in a disposable container.
type PostgresDB struct {
	DB  *bun.DB
	DSN string
}

// NewPostgresDB starts Postgres, applies the given migration sets in order
// and registers cleanup on t. It skips under -short.
func NewPostgresDB(t *testing.T, sets ...*migrate.Migrations) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	if container != nil {
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })
	}
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))

	for i, set := range sets {
		m := migrate.NewMigrator(db, set,
			migrate.WithTableName(fmt.Sprintf("bun_migrations_%d", i)),
			migrate.WithLocksTableName(fmt.Sprintf("bun_migration_locks_%d", i)),
		)
		require.NoError(t, m.Init(ctx))
		_, err := m.Migrate(ctx)
		require.NoError(t, err)
	}

	return &PostgresDB{DB: db, DSN: dsn}
}
