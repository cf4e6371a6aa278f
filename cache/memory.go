package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. When full, a random entry is evicted.
type Memory struct {
	mu         sync.RWMutex
	store      map[string]*Entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemory creates a Memory store. A background goroutine evicts expired
// entries, at most every five minutes, until Close.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries < 1 {
		maxEntries = 1
	}
	m := &Memory{
		store:      make(map[string]*Entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go m.cleanupLoop(cleanupInterval(ttl))
	return m
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}

func (m *Memory) Get(_ context.Context, key string) (*Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.store[key]
	m.mu.RUnlock()

	if !ok || m.expired(e) {
		return nil, false, nil
	}
	return e, true, nil
}

func (m *Memory) Set(_ context.Context, key string, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxEntries {
		// Map iteration order is random.
		for k := range m.store {
			delete(m.store, k)
			break
		}
	}
	m.store[key] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) expired(e *Entry) bool {
	return m.now().Sub(e.CreatedAt) > m.ttl
}

func (m *Memory) evictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.store {
		if m.expired(e) {
			delete(m.store, k)
		}
	}
}

func (m *Memory) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evictExpired()
		case <-m.stop:
			return
		}
	}
}
