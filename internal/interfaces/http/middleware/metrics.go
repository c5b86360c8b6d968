package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// latencyBuckets are seconds; sizeBuckets are bytes and reach into export downloads
var (
	latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	sizeBuckets    = []float64{100, 1e3, 1e4, 1e5, 1e6, 1e7}
)

type httpInstruments struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	size     metric.Int64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var ins httpInstruments
	var errs [4]error
	ins.requests, errs[0] = meter.Int64Counter("http_server_request_total",
		metric.WithDescription("HTTP requests served"), metric.WithUnit("{request}"))
	ins.latency, errs[1] = meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...))
	ins.size, errs[2] = meter.Int64Histogram("http_server_response_size_bytes",
		metric.WithDescription("HTTP response body size"), metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(sizeBuckets...))
	ins.inFlight, errs[3] = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"), metric.WithUnit("{request}"))
	return &ins, errors.Join(errs[:]...)
}

// HTTPMetrics records count, latency, response size and in-flight requests
// per route pattern. With a nil meter, or if the instruments cannot be
// created, it only calls the next handler.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	var ins *httpInstruments
	if meter != nil {
		if i, err := newHTTPInstruments(meter); err == nil {
			ins = i
		}
	}
	if ins == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		ins.inFlight.Add(ctx, 1)
		c.Next()
		ins.inFlight.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		attrs := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route))

		ins.requests.Add(ctx, 1, attrs, metric.WithAttributes(
			attribute.String("http.status_code", strconv.Itoa(status)),
			attribute.String("http.status_group", statusClass(status))))
		ins.latency.Record(ctx, time.Since(start).Seconds(), attrs)
		if n := c.Writer.Size(); n > 0 {
			ins.size.Record(ctx, int64(n), attrs)
		}
	}
}

// statusClass buckets a status code as 2xx, 3xx, 4xx or 5xx
func statusClass(code int) string {
	if code < 200 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
