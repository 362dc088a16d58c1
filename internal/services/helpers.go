package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func uniqueIDs(values []uint) []uint {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[uint]struct{}, len(values))
	out := make([]uint, 0, len(values))
	for _, value := range values {
		if value == 0 {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// TripMembers returns the user ids of every member of tripID. Recipient lists are
// always read from the primary store, never from a cached snapshot.
func TripMembers(ctx context.Context, db *gorm.DB, tripID uint) ([]uint, error) {
	var ids []uint
	if err := db.WithContext(ensureContext(ctx)).
		Model(&models.Member{}).
		Where("trip_id = ?", tripID).
		Order("id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Caches couples read-through lookups with write-path invalidation.
type Caches struct {
	store       cache.Store
	ttl         time.Duration
	invalidator *cache.Invalidator
}

// NewCaches wraps store. A nil store disables caching: reads always hit the
// primary store and invalidation does nothing.
func NewCaches(store cache.Store, ttl time.Duration) *Caches {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Caches{store: store, ttl: ttl, invalidator: cache.NewInvalidator(store)}
}

// Invalidator exposes the shared invalidator.
func (c *Caches) Invalidator() *cache.Invalidator {
	if c == nil {
		return nil
	}
	return c.invalidator
}

func (c *Caches) invalidate(ctx context.Context, keys ...string) {
	if c == nil {
		return
	}
	c.invalidator.Invalidate(ensureContext(ctx), keys...)
}

func readCached[T any](ctx context.Context, c *Caches, key string, load cache.LoadFunc[T]) (T, error) {
	ctx = ensureContext(ctx)
	if c == nil || c.store == nil {
		return load(ctx)
	}
	return cache.ReadThrough(ctx, c.store, key, c.ttl, load)
}
