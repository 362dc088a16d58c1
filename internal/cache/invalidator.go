package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/tripmate/pkg/logger"
	"github.com/charlesng35/tripmate/pkg/metrics"
)

// Invalidator deletes stale keys after a committed write. Failures are logged and
// counted but never returned: the primary store write is authoritative and the
// entry expires within its TTL regardless.
type Invalidator struct {
	store Store
	log   *zap.Logger
}

// NewInvalidator wraps store. A nil store yields an Invalidator that does nothing.
func NewInvalidator(store Store) *Invalidator {
	return &Invalidator{store: store, log: logger.WithModule("cache")}
}

// Store exposes the wrapped store for read-through callers.
func (i *Invalidator) Store() Store {
	if i == nil {
		return nil
	}
	return i.store
}

// Invalidate deletes keys unconditionally. Deleting an absent key is a no-op.
func (i *Invalidator) Invalidate(ctx context.Context, keys ...string) {
	if i == nil || i.store == nil || len(keys) == 0 {
		return
	}

	keys = dedupe(keys)
	if err := i.store.Delete(ctx, keys...); err != nil {
		for _, key := range keys {
			metrics.CacheInvalidations.WithLabelValues(Scope(key), "error").Inc()
		}
		i.log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
		return
	}

	for _, key := range keys {
		metrics.CacheInvalidations.WithLabelValues(Scope(key), "ok").Inc()
	}
	i.log.Debug("cache keys invalidated", zap.Strings("keys", keys))
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0:0]
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
