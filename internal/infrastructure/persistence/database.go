package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the GORM handle shared by the repositories
type Database struct {
	DB    *gorm.DB
	sqlDB *sql.DB
}

type openOptions struct {
	logger     logger.Interface
	attempts   int
	retryDelay time.Duration
}

// OpenOption configures Open
type OpenOption func(*openOptions)

// WithGormLogger routes statement logs through l
func WithGormLogger(l logger.Interface) OpenOption {
	return func(o *openOptions) { o.logger = l }
}

// WithConnectRetry pings up to attempts times, waiting delay between tries.
// The server uses it to ride out a database that is still starting.
func WithConnectRetry(attempts int, delay time.Duration) OpenOption {
	return func(o *openOptions) {
		o.attempts = max(attempts, 1)
		o.retryDelay = delay
	}
}

// Open connects to PostgreSQL, sizes the pool from cfg and verifies the
// connection. Timestamps are written in UTC and driver errors are translated
// so repositories can match gorm.ErrDuplicatedKey.
func Open(ctx context.Context, cfg *config.DatabaseConfig, opts ...OpenOption) (*Database, error) {
	o := openOptions{
		logger:   logger.Default.LogMode(logger.Silent),
		attempts: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 o.logger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db, err := wrap(gdb)
	if err != nil {
		return nil, err
	}
	db.configurePool(cfg)

	if err := db.waitReady(ctx, o.attempts, o.retryDelay); err != nil {
		_ = db.sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func wrap(gdb *gorm.DB) (*Database, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	return &Database{DB: gdb, sqlDB: sqlDB}, nil
}

func (d *Database) configurePool(cfg *config.DatabaseConfig) {
	d.sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	d.sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	d.sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	d.sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func (d *Database) waitReady(ctx context.Context, attempts int, delay time.Duration) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = d.Ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("ping database after %d attempt(s): %w", attempts, err)
}

// Ping checks the connection; it doubles as the health check of the server
func (d *Database) Ping(ctx context.Context) error {
	return d.sqlDB.PingContext(ctx)
}

// Stats reports the connection pool counters
func (d *Database) Stats() sql.DBStats {
	return d.sqlDB.Stats()
}

// Close releases every pooled connection
func (d *Database) Close() error {
	return d.sqlDB.Close()
}
