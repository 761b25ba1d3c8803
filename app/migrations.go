package app

import (
	"context"
	"fmt"
	"log/slog"

	countingmigrations "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/repositories/migrations"
	eventlogmigrations "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/infrastructure/repositories/migrations"
	moderationmigrations "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/infrastructure/repositories/migrations"
	settingsmigrations "github.com/Black-And-White-Club/counting-bot/app/modules/settings/infrastructure/repositories/migrations"
	statsmigrations "github.com/Black-And-White-Club/counting-bot/app/modules/stats/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// ModuleMigrator pairs a module name with its migrator.
type ModuleMigrator struct {
	Module   string
	Migrator *migrate.Migrator
}

// Migrators returns one migrator per module, in apply order. Each module
// tracks its migrations in its own table so rollbacks stay module-local.
func Migrators(db *bun.DB) []ModuleMigrator {
	sets := []struct {
		module     string
		migrations *migrate.Migrations
	}{
		{"settings", settingsmigrations.Migrations},
		{"eventlog", eventlogmigrations.Migrations},
		{"counting", countingmigrations.Migrations},
		{"moderation", moderationmigrations.Migrations},
		{"stats", statsmigrations.Migrations},
	}

	out := make([]ModuleMigrator, 0, len(sets))
	for _, s := range sets {
		out = append(out, ModuleMigrator{
			Module: s.module,
			Migrator: migrate.NewMigrator(db, s.migrations,
				migrate.WithTableName("bun_migrations_"+s.module),
				migrate.WithLocksTableName("bun_migration_locks_"+s.module),
			),
		})
	}
	return out
}

// MigrateAll initializes and applies every module's pending migrations.
func MigrateAll(ctx context.Context, db *bun.DB, logger *slog.Logger) error {
	for _, m := range Migrators(db) {
		if err := m.Migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", m.Module, err)
		}
		group, err := m.Migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate %s: %w", m.Module, err)
		}
		if group.IsZero() {
			logger.InfoContext(ctx, "No new migrations", attr.String("module", m.Module))
			continue
		}
		logger.InfoContext(ctx, "Migrated module",
			attr.String("module", m.Module),
			attr.String("group", group.String()),
		)
	}
	return nil
}
