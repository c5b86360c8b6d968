package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/ledgerbook/backend/migrations"
	"go.uber.org/zap"
)

// Migrator moves a PostgreSQL schema between migration versions
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Status is the recorded schema version. Applied is false on a database
// that never ran a migration.
type Status struct {
	Version uint
	Dirty   bool
	Applied bool
}

// New reads the migrations compiled into the binary
func New(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, err
	}
	return newMigrator(m, logger), nil
}

// NewFromDir reads migrations from dir, for trying out files not yet embedded
func NewFromDir(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, err
	}
	return newMigrator(m, logger), nil
}

func newMigrator(m *migrate.Migrate, logger *zap.Logger) *Migrator {
	m.Log = zapMigrateLog{logger.Named("migrate")}
	return &Migrator{migrate: m, logger: logger}
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down reverts every applied migration
func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps applies n migrations, reverting when n is negative
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("step %+d", n), func() error { return m.migrate.Steps(n) })
}

// GoTo migrates up or down until version is current
func (m *Migrator) GoTo(version uint) error {
	return m.apply(fmt.Sprintf("goto %d", version), func() error { return m.migrate.Migrate(version) })
}

// apply runs fn and logs the resulting version. Nothing to do is not an error.
func (m *Migrator) apply(op string, fn func() error) error {
	log := m.logger.With(zap.String("op", op))
	log.Info("Migrating")

	if err := fn(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Schema already current")
			return nil
		}
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	status, err := m.Status()
	if err != nil {
		return err
	}
	log.Info("Migration finished", zap.Uint("version", status.Version), zap.Bool("dirty", status.Dirty))
	return nil
}

func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.migrate.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	return Status{Version: version, Dirty: dirty, Applied: true}, nil
}

// Force records version as current and clears the dirty flag without
// running anything. Use it after repairing a failed migration by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing schema version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table, the version table included
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping all tables")
	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

// zapMigrateLog adapts zap to migrate.Logger
type zapMigrateLog struct {
	logger *zap.Logger
}

func (l zapMigrateLog) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l zapMigrateLog) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}
