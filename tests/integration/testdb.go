//go:build integration

// Package integration runs the ledger against a real PostgreSQL database
// started with testcontainers. Run with: go test -tags integration ./tests/integration/...
package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/ledgerbook/backend/internal/infrastructure/logger"
	"github.com/ledgerbook/backend/internal/infrastructure/migration"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	gormlogger "gorm.io/gorm/logger"
)

// pgContainer is terminated by TestMain
var pgContainer *tcpostgres.PostgresContainer

// postgresContainer starts one migrated PostgreSQL for the whole package
var postgresContainer = sync.OnceValues(func() (config.DatabaseConfig, error) {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("start postgres: %w", err)
	}
	pgContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "postgres",
		Password:        "postgres",
		DBName:          "ledger_test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}

	db, err := persistence.Open(ctx, &cfg, persistence.WithConnectRetry(5, time.Second))
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	defer db.Close()
	sqlDB, err := db.DB.DB()
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	m, err := migration.New(sqlDB, zap.NewNop())
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	if err := m.Up(); err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("migrate: %w", err)
	}
	return cfg, nil
})

// TestDB is a connection to the shared, migrated database
type TestDB struct {
	*persistence.Database
	t *testing.T
}

// NewTestDB connects to the shared container and empties every table.
// Set TEST_DB_DEBUG to log each statement through the test logger.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	cfg, err := postgresContainer()
	require.NoError(t, err, "PostgreSQL container unavailable")

	var opts []persistence.OpenOption
	if os.Getenv("TEST_DB_DEBUG") != "" {
		opts = append(opts, persistence.WithGormLogger(logger.NewGormLogger(zaptest.NewLogger(t), gormlogger.Info)))
	}
	db, err := persistence.Open(context.Background(), &cfg, opts...)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	tdb := &TestDB{Database: db, t: t}
	tdb.CleanTables()
	return tdb
}

// CleanTables truncates every table except the migration bookkeeping
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	require.NoError(tdb.t, tdb.DB.Raw(`
		SELECT quote_ident(tablename) FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'schema_migrations'
	`).Scan(&tables).Error, "list tables")
	if len(tables) == 0 {
		return
	}
	require.NoError(tdb.t, tdb.DB.Exec("TRUNCATE TABLE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE").Error, "truncate tables")
}
