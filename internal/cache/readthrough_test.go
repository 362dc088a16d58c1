package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type accommodation struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type failingStore struct {
	getErr    error
	setErr    error
	deleteErr error
	deletes   int
}

func (f *failingStore) IncrementWithTTL(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, f.getErr
}

func (f *failingStore) Set(context.Context, string, []byte, time.Duration) error { return f.setErr }

func (f *failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.getErr }

func (f *failingStore) Delete(context.Context, ...string) error {
	f.deletes++
	return f.deleteErr
}

func TestReadThroughSecondReadIsCacheHit(t *testing.T) {
	store := NewMemoryStore(nil)
	loads := 0
	load := func(context.Context) ([]accommodation, error) {
		loads++
		return []accommodation{{ID: 1, Name: "Lake Inn"}}, nil
	}

	first, err := ReadThrough(context.Background(), store, AccommodationsKey(42), DefaultTTL, load)
	require.NoError(t, err)
	second, err := ReadThrough(context.Background(), store, AccommodationsKey(42), DefaultTTL, load)
	require.NoError(t, err)

	require.Equal(t, 1, loads, "second read within the ttl must not query the primary store")
	require.Equal(t, first, second)
}

func TestReadThroughReloadsAfterTTL(t *testing.T) {
	clock := newManualClock()
	store := NewMemoryStore(clock.Now)
	loads := 0
	load := func(context.Context) (int64, error) {
		loads++
		return int64(loads), nil
	}

	value, err := ReadThrough(context.Background(), store, UnreadCountKey(5), DefaultTTL, load)
	require.NoError(t, err)
	require.EqualValues(t, 1, value)

	clock.Advance(DefaultTTL + time.Second)

	value, err = ReadThrough(context.Background(), store, UnreadCountKey(5), DefaultTTL, load)
	require.NoError(t, err)
	require.EqualValues(t, 2, value)
	require.Equal(t, 2, loads)
}

func TestReadThroughAfterInvalidationSeesWrite(t *testing.T) {
	store := NewMemoryStore(nil)
	invalidator := NewInvalidator(store)
	rows := []accommodation{{ID: 1, Name: "Lake Inn"}}
	load := func(context.Context) ([]accommodation, error) {
		return append([]accommodation(nil), rows...), nil
	}

	_, err := ReadThrough(context.Background(), store, AccommodationsKey(42), DefaultTTL, load)
	require.NoError(t, err)

	rows = append(rows, accommodation{ID: 2, Name: "Harbour Hotel"})
	invalidator.Invalidate(context.Background(), AccommodationsKey(42))

	fresh, err := ReadThrough(context.Background(), store, AccommodationsKey(42), DefaultTTL, load)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
}

func TestReadThroughDegradesWhenCacheFails(t *testing.T) {
	store := &failingStore{getErr: errors.New("connection refused"), setErr: errors.New("connection refused")}
	loads := 0
	load := func(context.Context) ([]accommodation, error) {
		loads++
		return []accommodation{{ID: 9}}, nil
	}

	for i := 0; i < 2; i++ {
		value, err := ReadThrough(context.Background(), store, AccommodationsKey(1), DefaultTTL, load)
		require.NoError(t, err)
		require.Len(t, value, 1)
	}
	require.Equal(t, 2, loads)
}

func TestReadThroughDiscardsCorruptEntry(t *testing.T) {
	store := NewMemoryStore(nil)
	require.NoError(t, store.Set(context.Background(), ItemsKey(3), []byte("{not json"), DefaultTTL))

	value, err := ReadThrough(context.Background(), store, ItemsKey(3), DefaultTTL, func(context.Context) ([]string, error) {
		return []string{"Passport"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Passport"}, value)

	raw, ok, _ := store.Get(context.Background(), ItemsKey(3))
	require.True(t, ok)
	require.JSONEq(t, `["Passport"]`, string(raw))
}

func TestReadThroughPropagatesLoadError(t *testing.T) {
	store := NewMemoryStore(nil)
	boom := errors.New("db down")

	_, err := ReadThrough(context.Background(), store, MembersKey(1), 0, func(context.Context) ([]string, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, store.Has(MembersKey(1)))
}

func TestReadThroughWithoutStore(t *testing.T) {
	value, err := ReadThrough(context.Background(), nil, MembersKey(1), 0, func(context.Context) (string, error) {
		return "direct", nil
	})
	require.NoError(t, err)
	require.Equal(t, "direct", value)
}
