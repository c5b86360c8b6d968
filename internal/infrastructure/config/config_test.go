package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ledgerbook", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "ledgerbook", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Empty(t, cfg.Redis.Host)
		assert.Equal(t, "TXN", cfg.Ledger.ReferencePrefix)
		assert.Equal(t, 20, cfg.Ledger.DefaultPageSize)
		assert.Equal(t, 100, cfg.Ledger.MaxPageSize)
		assert.Equal(t, 24*time.Hour, cfg.Ledger.IdempotencyTTL)
		assert.Equal(t, "pg_dump", cfg.Backup.PgDumpPath)
		assert.Equal(t, "ledger.events", cfg.Messaging.Exchange)
		assert.Contains(t, cfg.HTTP.CORSAllowHeaders, "Idempotency-Key")
		assert.False(t, cfg.Scheduler.Enabled)
		assert.Equal(t, "0 2 * * *", cfg.Scheduler.DailySchedule)
		assert.Equal(t, []string{"VERIFY_BALANCES"}, cfg.Scheduler.Jobs)
		assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
		assert.Equal(t, 200*time.Millisecond, cfg.Telemetry.DBSlowQueryThreshold)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
		assert.True(t, cfg.HTTP.SwaggerEnabled)
		assert.False(t, cfg.Telemetry.Profiling.Enabled)
		assert.Equal(t, []string{"cpu", "alloc_space", "inuse_space", "goroutines"}, cfg.Telemetry.Profiling.ProfileTypes)
	})

	t.Run("reads comma separated lists and durations from the environment", func(t *testing.T) {
		t.Setenv("LEDGER_HTTP_CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
		t.Setenv("LEDGER_JWT_ACCESS_TOKEN_EXPIRATION", "5m")
		t.Setenv("LEDGER_TELEMETRY_SAMPLING_RATIO", "0.25")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowOrigins)
		assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenExpiration)
		assert.InDelta(t, 0.25, cfg.Telemetry.SamplingRatio, 1e-9)
	})

	t.Run("reads the file named by LEDGER_CONFIG_FILE below the environment", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "ledger.toml")
		require.NoError(t, os.WriteFile(file, []byte(`
[ledger]
reference_prefix = "FILE"
max_page_size = 50

[storage]
retain = 7
`), 0o600))
		t.Setenv("LEDGER_CONFIG_FILE", file)
		t.Setenv("LEDGER_LEDGER_REFERENCE_PREFIX", "ENV")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ENV", cfg.Ledger.ReferencePrefix)
		assert.Equal(t, 50, cfg.Ledger.MaxPageSize)
		assert.Equal(t, 7, cfg.Storage.Retain)
	})

	t.Run("fails on an unreadable config file", func(t *testing.T) {
		t.Setenv("LEDGER_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("reads scheduler jobs as a whitespace separated list", func(t *testing.T) {
		t.Setenv("LEDGER_SCHEDULER_ENABLED", "true")
		t.Setenv("LEDGER_SCHEDULER_JOBS", "VERIFY_BALANCES BACKUP")

		cfg, err := Load()
		require.NoError(t, err)

		assert.True(t, cfg.Scheduler.Enabled)
		assert.Equal(t, []string{"VERIFY_BALANCES", "BACKUP"}, cfg.Scheduler.Jobs)
	})

	t.Run("loads values from environment variables with LEDGER prefix", func(t *testing.T) {
		t.Setenv("LEDGER_APP_PORT", "9000")
		t.Setenv("LEDGER_DATABASE_HOST", "testdb.local")
		t.Setenv("LEDGER_DATABASE_PORT", "5433")
		t.Setenv("LEDGER_DATABASE_PASSWORD", "testpass")
		t.Setenv("LEDGER_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("LEDGER_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("LEDGER_LEDGER_REFERENCE_PREFIX", "LB")
		t.Setenv("LEDGER_REDIS_HOST", "cache.local")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "LB", cfg.Ledger.ReferencePrefix)
		assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("LEDGER_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("LEDGER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates page sizes", func(t *testing.T) {
		t.Setenv("LEDGER_LEDGER_DEFAULT_PAGE_SIZE", "200")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ledger.default_page_size")
	})

	t.Run("requires bucket when storage is enabled", func(t *testing.T) {
		t.Setenv("LEDGER_STORAGE_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")
		assert.Contains(t, err.Error(), "storage.access_key", "every problem is reported at once")
	})

	t.Run("requires a server address when profiling is enabled", func(t *testing.T) {
		t.Setenv("LEDGER_TELEMETRY_PROFILING_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry.profiling.server_address")
	})

	t.Run("reads nested profiling settings from the environment", func(t *testing.T) {
		t.Setenv("LEDGER_TELEMETRY_PROFILING_ENABLED", "true")
		t.Setenv("LEDGER_TELEMETRY_PROFILING_SERVER_ADDRESS", "http://pyroscope:4040")
		t.Setenv("LEDGER_TELEMETRY_PROFILING_PROFILE_TYPES", "cpu,mutex_count")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://pyroscope:4040", cfg.Telemetry.Profiling.ServerAddress)
		assert.Equal(t, []string{"cpu", "mutex_count"}, cfg.Telemetry.Profiling.ProfileTypes)
	})

	t.Run("rejects negative backup retention", func(t *testing.T) {
		t.Setenv("LEDGER_STORAGE_ENABLED", "true")
		t.Setenv("LEDGER_STORAGE_BUCKET", "backups")
		t.Setenv("LEDGER_STORAGE_ACCESS_KEY", "key")
		t.Setenv("LEDGER_STORAGE_SECRET_KEY", "secret")
		t.Setenv("LEDGER_STORAGE_RETAIN", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.retain")
	})
}

func TestSplitListHook(t *testing.T) {
	tests := map[string][]string{
		"a,b":          {"a", "b"},
		"a b\tc":       {"a", "b", "c"},
		" a , b ,, c ": {"a", "b", "c"},
		"":             {},
	}
	for in, want := range tests {
		got, err := splitListHook(reflect.TypeOf(""), reflect.TypeOf([]string{}), in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	got, err := splitListHook(reflect.TypeOf(""), reflect.TypeOf(0), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", got, "non-list targets pass through")
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("LEDGER_DATABASE_PASSWORD", "secure-password")
		t.Setenv("LEDGER_DATABASE_SSLMODE", "require")
	}

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_JWT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})

	t.Run("requires jwt.secret at least 32 characters in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable'")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
