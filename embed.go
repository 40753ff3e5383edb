// Package urlguard exposes assets embedded at the module root.
package urlguard

import "embed"

// Migrations holds the goose SQL migrations of the guard's tables.
//
//go:embed migrations/*.sql
var Migrations embed.FS
