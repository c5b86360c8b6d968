package telemetry

import (
	"context"
	"errors"

	"github.com/ledgerbook/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer behind service spans
const TracerName = "github.com/ledgerbook/backend"

// Span attribute keys
const (
	AttrTransactionID = attribute.Key("ledger.transaction.id")
	AttrReference     = attribute.Key("ledger.transaction.reference")
	AttrAmount        = attribute.Key("ledger.transaction.amount")
	AttrAttempt       = attribute.Key("ledger.attempt")
	AttrExportRows    = attribute.Key("ledger.export.rows")
	AttrCorrected     = attribute.Key("ledger.balance.corrected")
	AttrBackupFile    = attribute.Key("ledger.backup.file")
	AttrBackupSize    = attribute.Key("ledger.backup.size")
	AttrErrorKind     = attribute.Key("ledger.error.kind")
	AttrErrorCode     = attribute.Key("ledger.error.code")
)

// StartServiceSpan starts an internal span named "<service>.<operation>".
// The caller ends it.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "transaction", "delete",
//	    telemetry.AttrTransactionID.String(id.String()))
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError attaches err to the span. Domain errors other than storage
// failures are the caller's fault: they are tagged with their kind and code
// and leave the span status alone, so error rates only count server faults.
func RecordError(span trace.Span, err error) {
	if err == nil || !span.IsRecording() {
		return
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Kind != shared.KindStorage {
		span.SetAttributes(
			AttrErrorKind.String(string(domainErr.Kind)),
			AttrErrorCode.String(domainErr.PublicCode()),
		)
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
