package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestNewDBTracing_Defaults(t *testing.T) {
	p := NewDBTracing(config.TelemetryConfig{Enabled: true, DBTraceEnabled: true}, "ledger", zap.NewNop())
	assert.True(t, p.enabled)
	assert.Equal(t, 200*time.Millisecond, p.slowQueryThresh)

	p = NewDBTracing(config.TelemetryConfig{Enabled: false, DBTraceEnabled: true}, "ledger", zap.NewNop())
	assert.False(t, p.enabled, "db tracing needs telemetry enabled")
}

func TestDBTracing_Disabled(t *testing.T) {
	db := openSQLite(t)
	p := NewDBTracing(config.TelemetryConfig{}, "ledger", zap.NewNop())
	require.NoError(t, p.Register(db))

	assert.Nil(t, db.Callback().Query().Get("otel_slow_query:query"))
}

func TestDBTracing_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	db := openSQLite(t)
	cfg := config.TelemetryConfig{Enabled: true, DBTraceEnabled: true, DBSlowQueryThreshold: time.Nanosecond}
	p := NewDBTracing(cfg, "ledger", zap.NewNop())
	require.NoError(t, p.Register(db))
	assert.NotNil(t, db.Callback().Query().Get("otel_slow_query:query"))

	type note struct {
		ID   uint
		Body string
	}
	require.NoError(t, db.AutoMigrate(&note{}))
	require.NoError(t, db.WithContext(context.Background()).Create(&note{Body: "x"}).Error)

	var found bool
	for _, s := range sr.Ended() {
		for _, a := range s.Attributes() {
			if a.Key == "db.slow_query" && a.Value.AsBool() {
				found = true
			}
		}
	}
	assert.True(t, found, "a query over the threshold is marked slow")
}
