package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// DBTracing registers otelgorm spans on a GORM connection and marks slow or failed queries.
type DBTracing struct {
	enabled         bool
	dbName          string
	slowQueryThresh time.Duration
	logger          *zap.Logger
}

// NewDBTracing creates the plugin. Query variables are never attached to spans.
func NewDBTracing(cfg config.TelemetryConfig, dbName string, logger *zap.Logger) *DBTracing {
	thresh := cfg.DBSlowQueryThreshold
	if thresh <= 0 {
		thresh = 200 * time.Millisecond
	}
	return &DBTracing{
		enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		dbName:          dbName,
		slowQueryThresh: thresh,
		logger:          logger,
	}
}

// Register installs the plugin on db
func (p *DBTracing) Register(db *gorm.DB) error {
	if !p.enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	// registered ahead of otelgorm so the after hooks see its span still recording
	if err := p.registerCallbacks(db); err != nil {
		return err
	}
	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(p.dbName),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Duration("slow_query_threshold", p.slowQueryThresh),
		zap.String("db_name", p.dbName),
	)
	return nil
}

func (p *DBTracing) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	before := func(d *gorm.DB) {
		if d.Statement.Context != nil {
			d.Statement.Context = context.WithValue(d.Statement.Context, queryStartTimeKey, time.Now())
		}
	}

	regs := []error{
		cb.Create().Before("gorm:create").Register("otel_timing:before_create", before),
		cb.Query().Before("gorm:query").Register("otel_timing:before_query", before),
		cb.Update().Before("gorm:update").Register("otel_timing:before_update", before),
		cb.Delete().Before("gorm:delete").Register("otel_timing:before_delete", before),
		cb.Row().Before("gorm:row").Register("otel_timing:before_row", before),
		cb.Raw().Before("gorm:raw").Register("otel_timing:before_raw", before),
		cb.Create().After("gorm:create").Register("otel_slow_query:create", p.afterQuery),
		cb.Query().After("gorm:query").Register("otel_slow_query:query", p.afterQuery),
		cb.Update().After("gorm:update").Register("otel_slow_query:update", p.afterQuery),
		cb.Delete().After("gorm:delete").Register("otel_slow_query:delete", p.afterQuery),
		cb.Row().After("gorm:row").Register("otel_slow_query:row", p.afterQuery),
		cb.Raw().After("gorm:raw").Register("otel_slow_query:raw", p.afterQuery),
	}
	return errors.Join(regs...)
}

// afterQuery annotates the current span with row counts, errors and slow-query markers
func (p *DBTracing) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.slowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.slowQueryThresh.Milliseconds()),
		))
	}
}
