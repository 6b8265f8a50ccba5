package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value      []byte
	expiration *time.Time
}

// MemoryStore is a mutex-guarded, process-local Store. Expired entries are
// evicted lazily on access. Intended for development and tests; production
// deployments share a PostgresStore across instances.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	now  func() time.Time
}

// NewMemoryStore creates a MemoryStore using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates a MemoryStore with an injectable clock,
// letting tests simulate the passage of time.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		now:  now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if m.hasExpired(entry, key) {
		return nil, ErrKeyNotFound
	}
	return entry.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		expiration := m.now().Add(ttl)
		entry.expiration = &expiration
	}
	m.data[key] = entry
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// hasExpired reports whether the entry's TTL has elapsed, removing it from
// the map when it has. Callers must hold the lock.
func (m *MemoryStore) hasExpired(entry memoryEntry, key string) bool {
	if entry.expiration == nil {
		return false
	}
	if m.now().Before(*entry.expiration) {
		return false
	}
	delete(m.data, key)
	return true
}
