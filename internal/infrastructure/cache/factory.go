package cache

import (
	"context"
	"fmt"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Coordination bundles the per-order lock and the idempotency store the
// purchase order service runs with
type Coordination struct {
	Locker      shared.OrderLocker
	Idempotency shared.IdempotencyStore
	// Redis is nil when the in-memory implementations are in use
	Redis *redis.Client
}

// Close releases the store and the Redis client
func (c *Coordination) Close() error {
	var firstErr error
	if c.Idempotency != nil {
		firstErr = c.Idempotency.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CoordinationFactory creates locks and idempotency stores based on configuration
type CoordinationFactory struct {
	redisConfig           config.RedisConfig
	procurement           config.ProcurementConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CoordinationFactoryOption is a functional option for configuring the factory
type CoordinationFactoryOption func(*CoordinationFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CoordinationFactoryOption {
	return func(f *CoordinationFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory implementations. Default is true.
func WithInMemoryFallback(allow bool) CoordinationFactoryOption {
	return func(f *CoordinationFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCoordinationFactory creates a new factory
func NewCoordinationFactory(redisCfg config.RedisConfig, procCfg config.ProcurementConfig, opts ...CoordinationFactoryOption) *CoordinationFactory {
	f := &CoordinationFactory{
		redisConfig:           redisCfg,
		procurement:           procCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateInMemory returns process-local implementations.
// They do not coordinate across instances.
func (f *CoordinationFactory) CreateInMemory() *Coordination {
	return &Coordination{
		Locker:      NewInMemoryOrderLocker(),
		Idempotency: NewInMemoryIdempotencyStore(),
	}
}

// CreateWithClient builds Redis-backed implementations on an existing client
func (f *CoordinationFactory) CreateWithClient(client *redis.Client) *Coordination {
	return &Coordination{
		Locker:      NewRedisOrderLocker(client, f.procurement.LockTTL, f.procurement.LockWait, f.logger),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Redis:       client,
	}
}

// Create uses Redis when it is configured and reachable, otherwise the
// in-memory implementations if fallback is allowed
func (f *CoordinationFactory) Create(ctx context.Context) (*Coordination, error) {
	if !f.redisConfig.Enabled() {
		f.logger.Info("redis not configured, using in-memory order locks and idempotency keys")
		return f.CreateInMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis order locks and idempotency keys",
			zap.String("addr", f.redisConfig.Addr()),
		)
		return f.CreateWithClient(client), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for order coordination but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory order locks. "+
		"Concurrent receipts on different instances are then only caught by version checks.",
		zap.Error(err),
	)
	return f.CreateInMemory(), nil
}
