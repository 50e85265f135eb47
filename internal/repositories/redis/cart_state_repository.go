// Package redis stores persisted cart envelopes in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/madu-store/api/internal/platform/config"
	"github.com/madu-store/api/internal/repositories"
)

const keyPrefix = "madu:"

// CartStateRepository implements repositories.CartStateRepository and cart.Storage on Redis.
type CartStateRepository struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewClient dials Redis using cfg. The connection is verified lazily by Ping.
func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewCartStateRepository wraps client. Each write refreshes the key expiry to ttl; a
// non-positive ttl stores keys without expiry.
func NewCartStateRepository(client goredis.UniversalClient, ttl time.Duration) (*CartStateRepository, error) {
	if client == nil {
		return nil, errors.New("cart state repository requires redis client")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CartStateRepository{client: client, ttl: ttl}, nil
}

// Get returns the stored envelope or nil when the key is absent.
func (r *CartStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("cartState.get", err)
	}
	return data, nil
}

// Set stores the envelope under key.
func (r *CartStateRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, redisKey(key), value, r.ttl).Err(); err != nil {
		return wrapError("cartState.set", err)
	}
	return nil
}

// Ping implements repositories.HealthRepository.
func (r *CartStateRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return wrapError("redis.ping", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *CartStateRepository) Close() error {
	return r.client.Close()
}

func redisKey(key string) string {
	return keyPrefix + strings.TrimSpace(key)
}

func wrapError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return repositories.NewUnavailableError(op, fmt.Errorf("redis: %w", err))
}
