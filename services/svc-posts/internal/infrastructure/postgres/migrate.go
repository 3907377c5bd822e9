package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrator applies the embedded schema migrations to a database.
type Migrator struct {
	migrate *migrate.Migrate
	logger  logger.Logger
}

// NewMigrator reads migrations from the root of source and targets the
// database behind dsn.
func NewMigrator(source fs.FS, dsn string, log logger.Logger) (*Migrator, error) {
	driver, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("opening migrations source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}

	return &Migrator{
		migrate: m,
		logger:  log.Component("migrator"),
	}, nil
}

// Up applies every pending migration. An up to date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	m.logVersion("schema is up to date")

	return nil
}

// Down rolls back the given number of migrations.
func (m *Migrator) Down(steps uint) error {
	if steps == 0 {
		return nil
	}

	if err := m.migrate.Steps(-int(steps)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back migrations: %w", err)
	}

	m.logVersion("rolled back migrations")

	return nil
}

// Version reports the applied schema version. A database without any
// migration reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("reading schema version: %w", err)
	}

	return version, dirty, nil
}

func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()

	return errors.Join(sourceErr, dbErr)
}

func (m *Migrator) logVersion(msg string) {
	version, dirty, err := m.Version()
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to read schema version")

		return
	}

	m.logger.Info().Uint("version", version).Bool("dirty", dirty).Msg(msg)
}
