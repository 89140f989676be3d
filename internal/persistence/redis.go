package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// AcquireLease takes a named lease for ttl when no other holder owns it.
// Used by the SLA sweeper so only one instance sweeps per tick.
func (r *Redis) AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	if r == nil || r.Client == nil {
		// no redis configured: single-instance deployment, always leader
		return true, nil
	}
	return r.Client.SetNX(ctx, "lease:"+name, holder, ttl).Result()
}

// IdempotencyStore remembers order ids created under an Idempotency-Key.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore builds the store on the shared client.
func NewIdempotencyStore(r *Redis, ttl time.Duration) *IdempotencyStore {
	if r == nil {
		return &IdempotencyStore{}
	}
	return &IdempotencyStore{client: r.Client, ttl: ttl}
}

// Lookup returns the order id previously stored for the key, if any.
func (s *IdempotencyStore) Lookup(ctx context.Context, tenantID, key string) (string, bool, error) {
	if s == nil || s.client == nil {
		return "", false, nil
	}
	val, err := s.client.Get(ctx, idempotencyKey(tenantID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Remember stores the order id for the key.
func (s *IdempotencyStore) Remember(ctx context.Context, tenantID, key, orderID string) error {
	if s == nil || s.client == nil {
		return nil
	}
	ttl := s.ttl
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.client.Set(ctx, idempotencyKey(tenantID, key), orderID, ttl).Err()
}

func idempotencyKey(tenantID, key string) string {
	return fmt.Sprintf("idem:%s:%s", tenantID, key)
}
