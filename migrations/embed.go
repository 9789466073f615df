// Package migrations embeds SQL migration files into the binary.
//
// Migration files follow the naming convention:
//
//	YYYYMMDD_HHMMSS_description.up.sql
//	YYYYMMDD_HHMMSS_description.down.sql
//
// The init function registers the embedded filesystem with the database
// package, so importing this package for side effects is enough:
//
//	import _ "github.com/emart-ops/emart-core/migrations"
package migrations

import (
	"embed"

	"github.com/emart-ops/emart-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
