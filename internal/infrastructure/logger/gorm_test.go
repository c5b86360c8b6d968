package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func observedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func statement(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLogger_LogModeReturnsCopy(t *testing.T) {
	l, _ := observedGormLogger(gormlogger.Info)

	quiet, ok := l.LogMode(gormlogger.Silent).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Silent, quiet.level)
	assert.Equal(t, gormlogger.Info, l.level)
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()
	failed := errors.New("connection reset")

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		elapsed   time.Duration
		err       error
		wantLevel zapcore.Level
		wantMsg   string
	}{
		{"error", gormlogger.Warn, 0, failed, zapcore.ErrorLevel, "SQL error"},
		{"not found is expected", gormlogger.Warn, 0, gorm.ErrRecordNotFound, zapcore.DebugLevel, "SQL expected error"},
		{"duplicate reference is expected", gormlogger.Warn, 0, gorm.ErrDuplicatedKey, zapcore.DebugLevel, "SQL expected error"},
		{"slow", gormlogger.Warn, time.Second, nil, zapcore.WarnLevel, "Slow SQL"},
		{"normal at info", gormlogger.Info, 0, nil, zapcore.DebugLevel, "SQL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, recorded := observedGormLogger(tt.level)
			l.Trace(ctx, time.Now().Add(-tt.elapsed), statement(`UPDATE "accounts" SET current_balance = current_balance + $1`), tt.err)

			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantLevel, logs[0].Level)
			assert.Equal(t, tt.wantMsg, logs[0].Message)
		})
	}
}

func TestGormLogger_TraceSkipsBelowLevel(t *testing.T) {
	called := false
	fc := func() (string, int64) {
		called = true
		return "SELECT 1", 1
	}

	l, recorded := observedGormLogger(gormlogger.Warn)
	l.Trace(context.Background(), time.Now(), fc, nil)
	assert.Empty(t, recorded.All())
	assert.False(t, called, "statement text is not rendered when nothing is logged")

	l, recorded = observedGormLogger(gormlogger.Silent)
	l.Trace(context.Background(), time.Now(), statement("SELECT 1"), errors.New("boom"))
	assert.Empty(t, recorded.All())
}

func TestGormLogger_ExpectedErrorsAreConfigurable(t *testing.T) {
	l, recorded := observedGormLogger(gormlogger.Warn, WithExpectedErrors())
	l.Trace(context.Background(), time.Now(), statement("SELECT 1"), gorm.ErrRecordNotFound)

	require.Len(t, recorded.All(), 1)
	assert.Equal(t, zapcore.ErrorLevel, recorded.All()[0].Level)
}

func TestGormLogger_SlowThresholdDisabled(t *testing.T) {
	l, recorded := observedGormLogger(gormlogger.Warn, WithSlowThreshold(0))
	l.Trace(context.Background(), time.Now().Add(-time.Hour), statement("SELECT 1"), nil)
	assert.Empty(t, recorded.All())
}

func TestGormLogger_TraceFields(t *testing.T) {
	l, recorded := observedGormLogger(gormlogger.Info)
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-42")

	l.Trace(ctx, time.Now(), statement(strings.Repeat("x", maxLoggedSQL+10)), nil)

	require.Len(t, recorded.All(), 1)
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Len(t, fields["sql"], maxLoggedSQL+3)
	assert.EqualValues(t, 1, fields["rows"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"INFO":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"unknown": gormlogger.Warn,
		"":        gormlogger.Warn,
	}
	for level, want := range tests {
		assert.Equal(t, want, MapGormLogLevel(level), level)
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
