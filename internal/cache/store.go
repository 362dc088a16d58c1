package cache

import (
	"context"
	"time"
)

// DefaultTTL bounds how long a read-through snapshot may be served.
const DefaultTTL = 60 * time.Second

// Store represents a shared cache interface used across the application.
// Delete of an absent key is a no-op and must not return an error.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
