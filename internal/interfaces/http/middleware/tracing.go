// Package middleware provides the gin middleware of the ledger HTTP API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps caller-supplied request IDs
const MaxRequestIDLength = 128

// Span attribute keys set by the ledger API
const (
	attrRequestID      = attribute.Key("request_id")
	attrUserID         = attribute.Key("user_id")
	attrIdempotencyKey = attribute.Key("ledger.idempotency_key")
	attrErrorCode      = attribute.Key("ledger.error_code")
	attrStatusCode     = attribute.Key("http.status_code")
)

// TracingConfig configures the server span middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are served without a span. Probes would otherwise dominate traces.
	SkipPaths []string
}

// DefaultTracingConfig traces everything except the health probe
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "ledgerbook-api",
		Enabled:     true,
		SkipPaths:   []string{"/health"},
	}
}

// Tracing starts a server span per request for the named service
func Tracing(serviceName string) gin.HandlerFunc {
	cfg := DefaultTracingConfig()
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}
	return TracingWithConfig(cfg)
}

// TracingWithConfig wraps otelgin. The request ID is attached as soon as the
// span exists; everything known only after the handler ran is added by
// SpanAnnotator.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	skip := slices.Clone(cfg.SkipPaths)
	otelMiddleware := otelgin.Middleware(cfg.ServiceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !slices.Contains(skip, r.URL.Path)
		}),
	)

	return func(c *gin.Context) {
		otelMiddleware(c)
	}
}

// SpanAnnotator must run inside the span started by Tracing. After the
// handler chain completes it records who made the request, whether it was an
// idempotent write, and marks 4xx/5xx responses as span errors with the API
// error code when one was written.
func SpanAnnotator() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if requestID := RequestIDOf(c); requestID != "" {
			span.SetAttributes(attrRequestID.String(requestID))
		}

		c.Next()

		annotateSpan(c, span)
	}
}

func annotateSpan(c *gin.Context, span trace.Span) {
	if userID := c.GetString(JWTUserIDKey); userID != "" {
		span.SetAttributes(attrUserID.String(userID))
	}
	if c.GetHeader(IdempotencyKeyHeader) != "" {
		span.SetAttributes(attrIdempotencyKey.Bool(true))
	}

	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		return
	}
	span.SetAttributes(attrStatusCode.Int(status))
	if code := c.GetString(ErrorCodeKey); code != "" {
		span.SetAttributes(attrErrorCode.String(code))
	}
	description := http.StatusText(status)
	if status < http.StatusInternalServerError && !slices.Contains(distinctClientErrors, status) {
		description = "Client Error"
	}
	span.SetStatus(codes.Error, description)
}

// distinctClientErrors keep their own status text on the span; other 4xx
// collapse into "Client Error"
var distinctClientErrors = []int{
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusTooManyRequests,
}

// RequestIDOf prefers the ID assigned by RequestID and falls back to the
// truncated header
func RequestIDOf(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDHeader)
	if len(id) > MaxRequestIDLength {
		id = id[:MaxRequestIDLength]
	}
	return id
}
