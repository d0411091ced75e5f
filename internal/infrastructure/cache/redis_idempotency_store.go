package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arledger/backend/internal/domain/shared"
)

const redisKeyPrefix = "payment:idempotency:"

// RedisIdempotencyStore shares idempotency state across replicas through
// Redis. Record relies on SETNX so exactly one caller wins a contested key.
type RedisIdempotencyStore struct {
	client *redis.Client
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisIdempotencyStore dials Redis and verifies the connection with a
// short ping before returning the store.
func NewRedisIdempotencyStore(cfg RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &RedisIdempotencyStore{client: client}, nil
}

// Record claims the key for paymentID. It returns false when another payment
// already holds the key.
func (s *RedisIdempotencyStore) Record(ctx context.Context, key, paymentID string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, redisKeyPrefix+key, paymentID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("recording idempotency key: %w", err)
	}
	return claimed, nil
}

// Lookup returns the payment recorded under key, reporting false for keys
// Redis has expired or never seen.
func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	paymentID, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("looking up idempotency key: %w", err)
	}
	return paymentID, true, nil
}

func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
