package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the Redis cache.
// URL takes precedence over the discrete fields when set.
type RedisConfig struct {
	URL      string
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
	Prefix   string
}

const defaultRedisTimeout = 5 * time.Second

// NewRedisClient builds a go-redis client and verifies connectivity so that
// misconfiguration is surfaced during application startup.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func redisOptions(cfg RedisConfig) (*redis.Options, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}

	var opts *redis.Options
	if url := strings.TrimSpace(cfg.URL); url != "" {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		opts = parsed
	} else {
		addr := strings.TrimSpace(cfg.Address)
		if addr == "" {
			return nil, errors.New("redis: address is required")
		}
		opts = &redis.Options{
			Addr:     addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
		if cfg.TLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	}

	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout
	return opts, nil
}

// RedisStore implements Store on top of go-redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. Prefix is prepended to every key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Client exposes the underlying client for pub/sub and health checks.
func (s *RedisStore) Client() redis.UniversalClient {
	if s == nil {
		return nil
	}
	return s.client
}

// Ping verifies the Redis server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s == nil {
		return errors.New("cache: redis store not initialised")
	}
	return s.client.Ping(ctx).Err()
}

// IncrementWithTTL increments the supplied key and starts its window on first use.
// It returns the current count and the remaining time-to-live.
func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errors.New("cache: redis store not initialised")
	}
	if window <= 0 {
		window = time.Minute
	}

	prefixed := s.prefixed(key)
	count, err := s.client.Incr(ctx, prefixed).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, prefixed, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}

	ttl, err := s.client.PTTL(ctx, prefixed).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		if err := s.client.PExpire(ctx, prefixed, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

// Set stores the value with an expiry. A non-positive ttl keeps the key until deleted.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errors.New("cache: redis store not initialised")
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.prefixed(key), value, ttl).Err()
}

// Get retrieves a value by key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errors.New("cache: redis store not initialised")
	}
	value, err := s.client.Get(ctx, s.prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Delete removes keys from Redis. Missing keys are ignored by the server.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errors.New("cache: redis store not initialised")
	}
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.prefixed(key)
	}
	return s.client.Del(ctx, prefixed...).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) prefixed(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + key
}
