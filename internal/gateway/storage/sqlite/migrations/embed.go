package migrations

import "embed"

// FS contains embedded SQLite migrations for gateway audit storage.
//
//go:embed *.sql
var FS embed.FS
