// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

//go:embed migrations templates
var FS embed.FS

const TemplatesDir = "templates"

// MigrationsDir returns the migrations directory of the SQL dialect used by `engine`.
func MigrationsDir(engine string) string {
	if engine == "sqlite3" {
		return "migrations/sqlite3"
	}
	return "migrations/postgres"
}
