// Package migrations embeds the PostgreSQL schema migrations so the migrate
// binary and the server can apply them without a migrations directory on disk.
package migrations

import "embed"

// FS holds the numbered *.up.sql / *.down.sql pairs
//
//go:embed *.sql
var FS embed.FS
