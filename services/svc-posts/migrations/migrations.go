// Package migrations embeds the SQL schema migrations of the posts service.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
