package telemetry

import (
	"context"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelArea      = "area"
	ProfilingLabelOperation = "operation"
)

// MaxLabelValueLength truncates label values
const MaxLabelValueLength = 128

// unboundedLabels would explode the number of profile series
var unboundedLabels = map[string]bool{
	"user_id":        true,
	"request_id":     true,
	"transaction_id": true,
	"reference":      true,
	"trace_id":       true,
	"span_id":        true,
}

// WithProfilingLabels runs fn with pprof labels attached to its goroutine so
// Pyroscope can slice samples by them. Empty, unbounded and unnamed labels are
// dropped; with none left fn runs unlabelled.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels flattens labels into sorted key/value pairs
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		key := labelKey(k)
		value := labels[k]
		if key == "" || value == "" || unboundedLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, key, value)
	}
	return pairs
}

// labelKey lowercases key into snake_case and drops other characters
func labelKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}
