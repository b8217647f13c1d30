package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Redis is a distributed Locker for deployments running several instances
// against the same document store.
type Redis struct {
	client *redislock.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

var _ Locker = (*Redis)(nil)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long a crashed holder can keep a key locked.
	TTL time.Duration
	// Prefix namespaces keys. Default "receipts:lock:".
	Prefix string
}

// NewRedis connects and pings the server before returning.
func NewRedis(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*Redis, *redis.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	logger.Info("lock.redis.connected", "addr", opts.Addr, "db", opts.DB)
	return NewRedisFromClient(rdb, opts, logger), rdb, nil
}

// NewRedisFromClient wraps an existing go-redis client.
func NewRedisFromClient(rdb redislock.RedisClient, opts RedisOptions, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Minute
	}
	if opts.Prefix == "" {
		opts.Prefix = "receipts:lock:"
	}
	return &Redis{
		client: redislock.New(rdb),
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		retry:  100 * time.Millisecond,
		logger: logger,
	}
}

// Acquire retries until the key is free or ctx expires.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	full := r.prefix + key
	l, err := r.client.Obtain(ctx, full, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("lock %s not obtained: %w", full, err)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", full, err)
	}

	return func() {
		// the holder's ctx may already be done; release on a fresh one
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.Release(relCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.logger.Warn("lock.redis.release_failed", "key", full, "error", err)
		}
	}, nil
}
