package moderationmigrations

import "github.com/uptrace/bun/migrate"

// Migrations is the moderation module's migration set.
var Migrations = migrate.NewMigrations()
