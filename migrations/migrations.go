// Package migrations embeds the schema migrations for each supported database.
package migrations

import "embed"

// Postgres holds the migrations for postgres:// databases, under "postgres".
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the migrations for sqlite:// databases, under "sqlite".
//
//go:embed sqlite/*.sql
var SQLite embed.FS
