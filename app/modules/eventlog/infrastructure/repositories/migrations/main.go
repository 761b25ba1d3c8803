package eventlogmigrations

import "github.com/uptrace/bun/migrate"

// Migrations is the event log module's migration set.
var Migrations = migrate.NewMigrations()
