package countingmigrations

import "github.com/uptrace/bun/migrate"

// Migrations is the counting module's migration set.
var Migrations = migrate.NewMigrations()
