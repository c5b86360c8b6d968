package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/auth"
	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the key-value backed stores (idempotency keys, revoked tokens).
// With Redis configured and reachable the stores share one Redis client;
// otherwise they fall back to process memory.
type Factory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-memory stores instead of failing. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect dials Redis when a host is configured
func (f *Factory) Connect(ctx context.Context) error {
	if f.cfg.Host == "" {
		f.logger.Info("redis not configured, using in-memory stores")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         f.cfg.Addr(),
		Password:     f.cfg.Password,
		DB:           f.cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return fmt.Errorf("redis required but unavailable at %s: %w", f.cfg.Addr(), err)
		}
		f.logger.Warn("redis unavailable, falling back to in-memory stores; "+
			"idempotency keys and token revocations will not be shared between instances",
			zap.String("addr", f.cfg.Addr()),
			zap.Error(err),
		)
		return nil
	}

	f.client = client
	f.logger.Info("connected to redis", zap.String("addr", f.cfg.Addr()))
	return nil
}

// UsesRedis reports whether the stores are Redis backed
func (f *Factory) UsesRedis() bool {
	return f.client != nil
}

// IdempotencyStore returns a store for request idempotency keys
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client != nil {
		return NewRedisIdempotencyStore(f.client)
	}
	return NewInMemoryIdempotencyStore()
}

// TokenBlacklist returns a store for revoked token IDs
func (f *Factory) TokenBlacklist() auth.TokenBlacklist {
	if f.client != nil {
		return auth.NewRedisTokenBlacklist(f.client)
	}
	return auth.NewInMemoryTokenBlacklist()
}

// Ping checks the Redis connection. It is nil when running in memory.
func (f *Factory) Ping(ctx context.Context) error {
	if f.client == nil {
		return nil
	}
	return f.client.Ping(ctx).Err()
}

// Close releases the Redis client
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
