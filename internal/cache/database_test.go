package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/database/testutil"
	"github.com/charlesng35/tripmate/internal/models"
)

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newManualClock()
	store := NewDatabaseStore(db, WithDatabaseClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "members_3", []byte(`[{"id":1}]`), DefaultTTL))
	value, ok, err := store.Get(ctx, "members_3")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `[{"id":1}]`, string(value))

	require.NoError(t, store.Set(ctx, "members_3", []byte(`[]`), DefaultTTL))
	value, ok, err = store.Get(ctx, "members_3")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[]`, string(value))

	require.NoError(t, store.Delete(ctx, "members_3", "missing_1"))
	_, ok, err = store.Get(ctx, "members_3")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreExpiryAndSweep(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newManualClock()
	store := NewDatabaseStore(db, WithDatabaseClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "items_1", []byte(`[]`), DefaultTTL))
	require.NoError(t, store.Set(ctx, "items_2", []byte(`[]`), 10*time.Minute))
	require.NoError(t, store.Set(ctx, "pinned", []byte(`1`), 0))

	clock.Advance(61 * time.Second)

	_, ok, err := store.Get(ctx, "items_2")
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, ttl, err := store.IncrementWithTTL(ctx, "rate:auth", time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, count)
		require.Greater(t, ttl, time.Duration(0))
	}
}

func TestNewDatabaseStoreNil(t *testing.T) {
	require.Nil(t, NewDatabaseStore(nil))

	var store *DatabaseStore
	require.Error(t, store.Delete(context.Background(), "x"))
}

func TestDatabaseStoreAvoidsReservedKeyColumn(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.True(t, db.Migrator().HasColumn(&models.CacheEntry{}, "cache_key"))
	require.False(t, db.Migrator().HasColumn(&models.CacheEntry{}, "key"))

	store := NewDatabaseStore(db)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "trip_9", []byte(`{}`), DefaultTTL))

	var keys []string
	require.NoError(t, db.Model(&models.CacheEntry{}).Pluck("cache_key", &keys).Error)
	require.Equal(t, []string{"trip_9"}, keys)
}
