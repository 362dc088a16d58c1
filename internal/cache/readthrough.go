package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/tripmate/pkg/logger"
	"github.com/charlesng35/tripmate/pkg/metrics"
)

// LoadFunc queries the primary store on a cache miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// ReadThrough serves key from store when present. On a miss it calls load, stores the
// JSON snapshot with ttl (DefaultTTL when non-positive) and returns the fresh value. Cache failures never fail the read:
// a broken or unreachable cache degrades to loading from the primary store.
func ReadThrough[T any](ctx context.Context, store Store, key string, ttl time.Duration, load LoadFunc[T]) (T, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	scope := Scope(key)
	log := logger.WithModule("cache")

	if store != nil {
		raw, ok, err := store.Get(ctx, key)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues(scope, "error").Inc()
			log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		case ok:
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				metrics.CacheLookups.WithLabelValues(scope, "hit").Inc()
				return cached, nil
			}
			metrics.CacheLookups.WithLabelValues(scope, "error").Inc()
			log.Warn("discarding undecodable cache entry", zap.String("key", key))
		default:
			metrics.CacheLookups.WithLabelValues(scope, "miss").Inc()
		}
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if store != nil {
		payload, err := json.Marshal(value)
		if err != nil {
			log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
			return value, nil
		}
		if err := store.Set(ctx, key, payload, ttl); err != nil {
			log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return value, nil
}
