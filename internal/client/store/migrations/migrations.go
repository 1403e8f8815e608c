// Package migrations embeds the SQL schema migrations for the local
// replica. Migrations are additive-only: a version bump may create tables,
// columns or indexes, never drop existing data.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
