package cache

import (
	"context"
	"testing"

	"github.com/ledgerbook/backend/internal/infrastructure/auth"
	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_WithoutRedisHost(t *testing.T) {
	f := NewFactory(config.RedisConfig{})
	require.NoError(t, f.Connect(context.Background()))

	assert.False(t, f.UsesRedis())
	assert.IsType(t, &InMemoryIdempotencyStore{}, f.IdempotencyStore())
	assert.IsType(t, &auth.InMemoryTokenBlacklist{}, f.TokenBlacklist())
	assert.NoError(t, f.Ping(context.Background()))
	assert.NoError(t, f.Close())
}

func TestFactory_UnreachableRedis(t *testing.T) {
	// nothing listens on port 1
	cfg := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("falls back to memory", func(t *testing.T) {
		f := NewFactory(cfg)
		require.NoError(t, f.Connect(context.Background()))
		assert.False(t, f.UsesRedis())
		assert.IsType(t, &InMemoryIdempotencyStore{}, f.IdempotencyStore())
	})

	t.Run("fails when fallback is disabled", func(t *testing.T) {
		f := NewFactory(cfg, WithInMemoryFallback(false))
		err := f.Connect(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "127.0.0.1:1")
	})
}
