// Package migrations embeds the SQL schema migrations applied by db.Migrate.
package migrations

import "embed"

// FS holds the versioned golang-migrate files ({version}_{title}.up.sql / .down.sql).
//
//go:embed *.sql
var FS embed.FS
