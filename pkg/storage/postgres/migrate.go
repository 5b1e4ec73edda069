// Package postgres is the pgx-backed reference implementation of the
// §3 persisted-state store interfaces (§6.1): a hand-written adapter,
// no entgo.io/ent code generation involved (see DESIGN.md for why ent
// itself was dropped). The core engine never imports this package
// directly — it depends only on pkg/types's store interfaces; cmd/
// wires this adapter in when a DATABASE_URL is configured.
package postgres

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers the "postgres" scheme driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate runs every pending migration in migrations/ against dsn
// using golang-migrate's iofs source driver, grounded on the teacher's
// database.Client migration bootstrap (embed.FS + iofs, no separate
// migration binary).
func Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("postgres: build migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("postgres: apply migrations: %w", err)
	}
	return nil
}
