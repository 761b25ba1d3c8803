package settingsmigrations

import "github.com/uptrace/bun/migrate"

// Migrations is the settings module's migration set.
var Migrations = migrate.NewMigrations()
