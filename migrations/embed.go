// Package migrations embarca o schema Postgres aplicado por db.Migrate
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
