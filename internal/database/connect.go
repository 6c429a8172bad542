package database

import (
	"database/sql"
	"fmt"

	"github.com/iliyamo/program-planner/internal/config"
)

// Open connects to the database selected by cfg.DBDriver.
func Open(cfg config.Config) (*sql.DB, error) {
	switch cfg.DBDriver {
	case DriverMySQL:
		return OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	case DriverSQLite:
		return OpenSQLite(cfg.DBPath)
	}
	return nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
}

// Migrate applies pending migrations for the configured driver.
func Migrate(cfg config.Config) error {
	switch cfg.DBDriver {
	case DriverMySQL:
		return MigrateMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	case DriverSQLite:
		return MigrateSQLite(cfg.DBPath)
	}
	return fmt.Errorf("unsupported driver %q", cfg.DBDriver)
}
