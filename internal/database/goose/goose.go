package goose

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// DatabaseType selects the SQL dialect goose applies migrations with.
type DatabaseType string

const Postgres DatabaseType = "postgres"

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate brings db up to the latest embedded migration for the given
// dialect. It is safe to call on every startup: goose tracks applied
// versions in its own table and no-ops once the schema is current.
func Migrate(db *sql.DB, dialect DatabaseType) error {
	if dialect == "" {
		return fmt.Errorf("goose.Migrate: dialect must not be empty")
	}

	goose.SetBaseFS(migrationFiles)

	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("goose.SetDialect(%q): %w", dialect, err)
	}

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("goose.Up: %w", err)
	}

	return nil
}
