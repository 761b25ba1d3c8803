package statsmigrations

import "github.com/uptrace/bun/migrate"

// Migrations is the stats module's migration set.
var Migrations = migrate.NewMigrations()
