package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"billetera/internal/log"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// ErrDirtySchema means an earlier migration stopped halfway and the
// database needs manual repair.
var ErrDirtySchema = errors.New("ledger schema is dirty")

// migrateSchema applies pending ledger migrations and returns the schema
// version the database ends at.
func migrateSchema(dbPath string) (uint, error) {
	// closing the migrator closes its connection, so it gets its own
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open schema connection: %w", err)
	}
	defer conn.Close()

	target, err := sqlite.WithInstance(conn, &sqlite.Config{MigrationsTable: "ledger_schema"})
	if err != nil {
		return 0, fmt.Errorf("wrap schema connection: %w", err)
	}
	source, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("read embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("prepare migrator: %w", err)
	}
	defer m.Close()

	if _, dirty, err := m.Version(); err == nil && dirty {
		return 0, ErrDirtySchema
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	slog.Debug("Ledger schema ready",
		log.FieldComponent, log.ComponentStorage,
		"schema_version", version)
	return version, nil
}
