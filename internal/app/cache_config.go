package app

import (
	"strings"
	"time"

	"github.com/charlesng35/tripmate/internal/cache"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		URL:      strings.TrimSpace(c.Redis.URL),
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
		Prefix:   c.Redis.Prefix,
	}
}

// EntryTTL returns the read-through expiry, falling back to cache.DefaultTTL.
func (c CacheConfig) EntryTTL() time.Duration {
	if c.TTL <= 0 {
		return cache.DefaultTTL
	}
	return c.TTL
}
