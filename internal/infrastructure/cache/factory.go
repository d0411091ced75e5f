package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/config"
)

// IdempotencyStoreFactory builds the idempotency store backing payment
// collection. Redis is the production backend; a process-local map serves
// single-instance and test setups.
type IdempotencyStoreFactory struct {
	redis    config.RedisConfig
	logger   *zap.Logger
	fallback bool
}

type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) { f.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store instead of failing startup. An in-memory store does not
// share state between instances, so duplicate collection becomes possible
// when the service runs more than one replica.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) { f.fallback = allow }
}

func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redis:    cfg,
		logger:   zap.NewNop(),
		fallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore dials Redis and returns a store bound to it. When Redis cannot
// be reached the factory either falls back to the in-memory store or, with
// fallback disabled, reports the dial error.
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(RedisConfig{
		Host:     f.redis.Host,
		Port:     f.redis.Port,
		Password: f.redis.Password,
		DB:       f.redis.DB,
	})
	if err == nil {
		f.logger.Info("using Redis idempotency store")
		return store, nil
	}

	if !f.fallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, using in-memory idempotency store",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}

// CreateInMemoryStore returns a store that lives and dies with the process.
func (f *IdempotencyStoreFactory) CreateInMemoryStore() shared.IdempotencyStore {
	return NewInMemoryIdempotencyStore()
}
