package config

import (
	"time"

	"github.com/spf13/viper"
)

// defaults lists every key Load understands. Viper only consults the
// environment for keys it knows, so keys without a real default are
// registered with their zero value.
var defaults = map[string]any{
	"app.name": "ledgerbook",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "ledgerbook",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,

	"redis.host":     "",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                   "",
	"jwt.refresh_secret":           "",
	"jwt.access_token_expiration":  15 * time.Minute,
	"jwt.refresh_token_expiration": 7 * 24 * time.Hour,
	"jwt.issuer":                   "ledgerbook",
	"jwt.max_refresh_count":        10,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":             15 * time.Second,
	"http.write_timeout":            time.Minute,
	"http.idle_timeout":             time.Minute,
	"http.max_header_bytes":         1 << 20,
	"http.max_body_size":            int64(1 << 20),
	"http.rate_limit_enabled":       false,
	"http.rate_limit_requests":      100,
	"http.rate_limit_window":        time.Minute,
	"http.auth_rate_limit_requests": 5,
	"http.auth_rate_limit_window":   time.Minute,
	"http.cors_allow_origins":       []string{},
	"http.cors_allow_methods":       []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
	"http.cors_allow_headers":       []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
	"http.trusted_proxies":          []string{},
	"http.swagger_enabled":          true,

	"storage.enabled":            false,
	"storage.endpoint":           "",
	"storage.region":             "us-east-1",
	"storage.bucket":             "",
	"storage.access_key":         "",
	"storage.secret_key":         "",
	"storage.use_ssl":            false,
	"storage.use_path_style":     true,
	"storage.prefix":             "backups/",
	"storage.retain":             0,
	"storage.presign_expiration": 15 * time.Minute,

	"backup.pg_dump_path": "pg_dump",
	"backup.directory":    "./backups",
	"backup.timeout":      10 * time.Minute,

	"messaging.url":      "",
	"messaging.exchange": "ledger.events",

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "ledgerbook",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"telemetry.profiling.enabled":             false,
	"telemetry.profiling.server_address":      "",
	"telemetry.profiling.basic_auth_user":     "",
	"telemetry.profiling.basic_auth_password": "",
	"telemetry.profiling.profile_types":       []string{"cpu", "alloc_space", "inuse_space", "goroutines"},
	"telemetry.profiling.span_profiles":       false,

	"ledger.reference_prefix":    "TXN",
	"ledger.default_page_size":   20,
	"ledger.max_page_size":       100,
	"ledger.idempotency_ttl":     24 * time.Hour,
	"ledger.max_login_attempts":  5,
	"ledger.login_lock_duration": 15 * time.Minute,

	"scheduler.enabled":        false,
	"scheduler.daily_schedule": "0 2 * * *",
	"scheduler.jobs":           []string{"VERIFY_BALANCES"},
	"scheduler.workers":        1,
	"scheduler.job_timeout":    30 * time.Minute,
	"scheduler.retry_attempts": 2,
	"scheduler.retry_delay":    5 * time.Minute,
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
