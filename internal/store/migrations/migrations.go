// Package migrations embeds the SQL migration set applied by
// internal/store.RunMigrations, an explicit Postgres migration path kept
// beside the GORM AutoMigrate that `hes migrate` runs, for operators who
// want reviewable schema changes.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
