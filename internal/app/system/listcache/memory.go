package listcache

import (
	"context"
	"sync"
	"time"
)

type memEntry[V any] struct {
	gen     uint64
	value   V
	expires time.Time
}

// Memory is a process-local Backend with a TTL and a bound on entries.
type Memory[V any] struct {
	mu         sync.Mutex
	gen        uint64
	ttl        time.Duration
	maxEntries int
	entries    map[string]memEntry[V]
	now        func() time.Time
}

// NewMemory returns a Memory backend. maxEntries <= 0 means unbounded.
func NewMemory[V any](ttl time.Duration, maxEntries int) *Memory[V] {
	return &Memory[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]memEntry[V]),
		now:        time.Now,
	}
}

func (m *Memory[V]) Generation(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen, nil
}

func (m *Memory[V]) Get(_ context.Context, gen uint64, key string) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || e.gen != gen || !m.now().Before(e.expires) {
		var zero V
		return zero, false, nil
	}
	return e.value, true, nil
}

func (m *Memory[V]) Set(_ context.Context, gen uint64, key string, v V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil // computed before the last purge
	}
	now := m.now()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictLocked(now)
	}
	m.entries[key] = memEntry[V]{gen: gen, value: v, expires: now.Add(m.ttl)}
	return nil
}

// evictLocked drops expired entries, or the one closest to expiry if none are.
func (m *Memory[V]) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	removed := false
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			removed = true
			continue
		}
		if oldestKey == "" || e.expires.Before(oldest) {
			oldestKey, oldest = k, e.expires
		}
	}
	if !removed && oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

func (m *Memory[V]) Purge(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	clear(m.entries)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
