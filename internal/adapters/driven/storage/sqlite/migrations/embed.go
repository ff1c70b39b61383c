// Package migrations holds the SQLite schema, applied in filename order.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql pairs.
//
//go:embed *.sql
var FS embed.FS
