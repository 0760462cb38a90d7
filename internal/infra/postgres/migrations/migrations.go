package migrations

import "github.com/uptrace/bun/migrate"

// Migrations collects every schema change; each file registers one step and
// bun names it after the file.
var Migrations = migrate.NewMigrations()
