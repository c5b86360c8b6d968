package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	AttrOperation = attribute.Key("operation")
	AttrOutcome   = attribute.Key("outcome")
	AttrFormat    = attribute.Key("format")
)

// LedgerMetrics holds the instruments recorded by the ledger services.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	transactions   metric.Int64Counter
	exportedRows   metric.Int64Counter
	balanceDrift   metric.Int64Counter
	backupDuration metric.Float64Histogram
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	transactions, err := meter.Int64Counter("ledger.transactions",
		metric.WithDescription("Ledger transactions by operation"),
		metric.WithUnit("{transaction}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactions counter: %w", err)
	}
	exportedRows, err := meter.Int64Counter("ledger.export.rows",
		metric.WithDescription("Rows written by transaction exports"),
		metric.WithUnit("{row}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create export counter: %w", err)
	}
	balanceDrift, err := meter.Int64Counter("ledger.balance.drift",
		metric.WithDescription("Accounts whose cached balance differed from the recomputed one"),
		metric.WithUnit("{account}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create drift counter: %w", err)
	}
	backupDuration, err := meter.Float64Histogram("ledger.backup.duration",
		metric.WithDescription("Database backup duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600))
	if err != nil {
		return nil, fmt.Errorf("failed to create backup histogram: %w", err)
	}

	return &LedgerMetrics{
		transactions:   transactions,
		exportedRows:   exportedRows,
		balanceDrift:   balanceDrift,
		backupDuration: backupDuration,
	}, nil
}

// TransactionRecorded counts a posted, deleted or reconciled transaction
func (m *LedgerMetrics) TransactionRecorded(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.transactions.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(operation)))
}

// RowsExported counts exported rows per format
func (m *LedgerMetrics) RowsExported(ctx context.Context, format string, rows int) {
	if m == nil {
		return
	}
	m.exportedRows.Add(ctx, int64(rows), metric.WithAttributes(AttrFormat.String(format)))
}

// BalanceDrift counts accounts found out of sync during verification
func (m *LedgerMetrics) BalanceDrift(ctx context.Context, accounts int) {
	if m == nil || accounts == 0 {
		return
	}
	m.balanceDrift.Add(ctx, int64(accounts))
}

// BackupFinished records how long a backup took and whether it succeeded
func (m *LedgerMetrics) BackupFinished(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.backupDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrOutcome.String(outcome)))
}
