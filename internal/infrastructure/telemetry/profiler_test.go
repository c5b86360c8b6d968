package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes([]string{"cpu", " Inuse_Space ", "cpu", "mutex_count"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU, pyroscope.ProfileInuseSpace, pyroscope.ProfileMutexCount,
	}, types)

	_, err = ParseProfileTypes([]string{"cpu", "heap"})
	assert.ErrorContains(t, err, `"heap"`)
}

func TestNewProfiler(t *testing.T) {
	t.Run("disabled is a no-op", func(t *testing.T) {
		p, err := NewProfiler(config.ProfilingConfig{}, "ledgerbook", zap.NewNop())
		require.NoError(t, err)
		assert.False(t, p.IsEnabled())
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})

	t.Run("requires a server address", func(t *testing.T) {
		_, err := NewProfiler(config.ProfilingConfig{Enabled: true}, "ledgerbook", zap.NewNop())
		assert.ErrorContains(t, err, "server address")
	})

	t.Run("rejects unknown profile types", func(t *testing.T) {
		_, err := NewProfiler(config.ProfilingConfig{
			Enabled:       true,
			ServerAddress: "http://localhost:4040",
			ProfileTypes:  []string{"flamegraph"},
		}, "ledgerbook", zap.NewNop())
		assert.ErrorContains(t, err, "unknown profile type")
	})
}

func TestEnableSpanProfiles_NeedsTelemetryAndProfiler(t *testing.T) {
	provider, err := NewProvider(context.Background(), config.TelemetryConfig{}, zap.NewNop())
	require.NoError(t, err)
	profiler, err := NewProfiler(config.ProfilingConfig{}, "ledgerbook", zap.NewNop())
	require.NoError(t, err)

	assert.False(t, provider.EnableSpanProfiles(profiler))
	assert.False(t, provider.EnableSpanProfiles(nil))
}

func TestWithProfilingLabels(t *testing.T) {
	t.Run("attaches sanitized labels", func(t *testing.T) {
		var route, method, user string
		var hasUser bool
		WithProfilingLabels(context.Background(), map[string]string{
			ProfilingLabelRoute: "/api/v1/ledger/transactions",
			"HTTP Method":       "POST",
			"user_id":           "42",
			ProfilingLabelArea:  "",
		}, func(ctx context.Context) {
			route, _ = pprof.Label(ctx, ProfilingLabelRoute)
			method, _ = pprof.Label(ctx, "http_method")
			user, hasUser = pprof.Label(ctx, "user_id")
		})
		assert.Equal(t, "/api/v1/ledger/transactions", route)
		assert.Equal(t, "POST", method)
		assert.False(t, hasUser, "unbounded label dropped, got %q", user)
	})

	t.Run("runs fn without labels", func(t *testing.T) {
		called := false
		WithProfilingLabels(context.Background(), nil, func(ctx context.Context) {
			called = true
			_, ok := pprof.Label(ctx, ProfilingLabelRoute)
			assert.False(t, ok)
		})
		assert.True(t, called)
	})
}

func TestSanitizeLabels(t *testing.T) {
	long := strings.Repeat("x", MaxLabelValueLength+10)
	pairs := sanitizeLabels(map[string]string{
		"b-key":  "2",
		"a key":  "1",
		"!!":     "dropped",
		"region": long,
	})
	assert.Equal(t, []string{"a_key", "1", "b_key", "2", "region", long[:MaxLabelValueLength]}, pairs)
}
