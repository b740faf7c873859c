// Package migrations embeds the session storage schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
