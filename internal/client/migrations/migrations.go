// Package migrations embeds the goose SQL migrations for the on-device
// database. Schema changes must be additive: the store survives app
// upgrades, so existing columns are never repurposed or dropped.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
