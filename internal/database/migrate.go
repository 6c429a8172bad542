package database

import (
	"embed"
	"errors"
	"fmt"
	"path"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// MigrateMySQL applies all pending up migrations to a MySQL database.
func MigrateMySQL(user, pass, host, port, name string) error {
	mc := MySQLConfig(user, pass, host, port, name)
	mc.MultiStatements = true
	return runMigrations(DriverMySQL, "mysql://"+mc.FormatDSN())
}

// MigrateSQLite applies all pending up migrations to the SQLite file at path.
func MigrateSQLite(dbPath string) error {
	return runMigrations(DriverSQLite, "sqlite://"+dbPath)
}

func runMigrations(dialect, url string) error {
	src, err := iofs.New(migrationsFS, path.Join("migrations", dialect))
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", dialect, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
