// Package migrations embeds the versioned SQL migration files for the
// PostgreSQL chat store.
package migrations

import "embed"

// FS contains the SQL migration files consumed by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
