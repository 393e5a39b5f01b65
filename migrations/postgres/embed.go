// Package migrations embebe las migraciones SQL del proxy.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
