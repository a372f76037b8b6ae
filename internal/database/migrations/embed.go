// Package migrations embeds the goose migrations of the filter store
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
