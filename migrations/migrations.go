// Package migrations embeds the SQL schema applied by cmd/migrate.
package migrations

import "embed"

// FS holds the numbered *.sql migrations, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
