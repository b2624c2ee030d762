// Package migrations содержит SQL схему модерации.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
