package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store used by tests and single-node development setups.
// Expiry is evaluated lazily against the injected clock.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore constructs an empty MemoryStore. A nil clock defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// IncrementWithTTL increments a counter, starting a new window when the previous one expired.
func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.lookupLocked(key, now)
	var count int64
	if ok {
		count = decodeCounter(entry.value)
	} else {
		entry = memoryEntry{expiresAt: now.Add(window)}
	}
	count++
	entry.value = encodeCounter(count)
	s.entries[key] = entry

	return count, entry.expiresAt.Sub(now), nil
}

// Set stores a copy of value. A non-positive ttl keeps the entry until deleted.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

// Get returns a copy of the stored value when present and unexpired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookupLocked(key, s.now())
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// Delete removes keys. Absent keys are ignored.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// Has reports whether a live entry exists for key.
func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookupLocked(key, s.now())
	return ok
}

func (s *MemoryStore) lookupLocked(key string, now time.Time) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func encodeCounter(n int64) []byte {
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(n)
		n >>= 8
	}
	return buf
}

func decodeCounter(buf []byte) int64 {
	var n int64
	for _, b := range buf {
		n = n<<8 | int64(b)
	}
	return n
}
