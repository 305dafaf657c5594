package sqlstore

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration for the store's dialect.
func (s *Store) Migrate() error {
	m, closeFn, err := s.migrator()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlstore: run migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back steps migrations.
func (s *Store) MigrateDown(steps int) error {
	m, closeFn, err := s.migrator()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlstore: rollback migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied schema version.
func (s *Store) MigrationVersion() (uint, bool, error) {
	m, closeFn, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	defer closeFn()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (s *Store) migrator() (*migrate.Migrate, func(), error) {
	switch s.Driver() {
	case DriverSQLite:
		source, err := iofs.New(migrationsFS, "migrations/sqlite")
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: migrations source: %w", err)
		}
		driver, err := sqlite3.WithInstance(s.db.DB, &sqlite3.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: migrations driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, DriverSQLite, driver)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: create migrate instance: %w", err)
		}
		// m.Close would close the shared handle.
		return m, func() { _ = source.Close() }, nil

	case DriverPostgres:
		source, err := iofs.New(migrationsFS, "migrations/postgres")
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: migrations source: %w", err)
		}
		m, err := migrate.NewWithSourceInstance("iofs", source, pgxMigrateURL(s.dsn))
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: create migrate instance: %w", err)
		}
		return m, func() { _, _ = m.Close() }, nil
	}
	return nil, nil, fmt.Errorf("sqlstore: unsupported driver %q", s.Driver())
}

// pgxMigrateURL rewrites a postgres URL to the scheme registered by the
// golang-migrate pgx/v5 driver.
func pgxMigrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
