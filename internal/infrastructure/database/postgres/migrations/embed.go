// Package migrations embeds the schema migrations of the appointment store.
package migrations

import "embed"

// FS holds the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS

//Personal.AI order the ending
