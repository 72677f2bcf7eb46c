package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/iconidentify/chalkboard/internal/metrics"
)

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	expiresAt time.Time
}

// Memory is an in-process cache with per-entry TTL and an optional LRU bound.
type Memory[V any] struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front = most recently used
	defaultTTL time.Duration
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption[V any] func(*Memory[V])

// WithMaxEntries bounds the cache; the least recently used entry is evicted
// when a new key would exceed the bound. 0 means unbounded.
func WithMaxEntries[V any](n int) MemoryOption[V] {
	return func(m *Memory[V]) {
		m.maxEntries = n
	}
}

// WithClock replaces time.Now, for tests.
func WithClock[V any](now func() time.Time) MemoryOption[V] {
	return func(m *Memory[V]) {
		m.now = now
	}
}

// NewMemory creates an in-memory cache. defaultTTL <= 0 falls back to DefaultTTL.
func NewMemory[V any](defaultTTL time.Duration, opts ...MemoryOption[V]) *Memory[V] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	m := &Memory[V]{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value for key, evicting it if it has expired.
func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V

	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeMemory).Inc()
		return zero, false, nil
	}

	e := el.Value.(*entry[V])
	if m.now().After(e.expiresAt) {
		m.removeElement(el)
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeMemory).Inc()
		return zero, false, nil
	}

	m.order.MoveToFront(el)
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeMemory).Inc()
	return e.value, true, nil
}

// Set stores value under key, overwriting any previous entry.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.createdAt = now
		e.expiresAt = now.Add(ttl)
		m.order.MoveToFront(el)
	} else {
		el := m.order.PushFront(&entry[V]{
			key:       key,
			value:     value,
			createdAt: now,
			expiresAt: now.Add(ttl),
		})
		m.items[key] = el
		if m.maxEntries > 0 {
			for m.order.Len() > m.maxEntries {
				m.removeElement(m.order.Back())
			}
		}
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeMemory).Inc()
	return nil
}

// Delete removes key if present.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.removeElement(el)
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeMemory).Inc()
	return nil
}

// ClearExpired removes every expired entry and returns how many were removed.
func (m *Memory[V]) ClearExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*entry[V]).expiresAt) {
			m.removeElement(el)
			removed++
		}
		el = next
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSweep, metrics.CacheStatusSuccess, metrics.CacheTypeMemory).Inc()
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Ping always succeeds for the in-process store.
func (m *Memory[V]) Ping(context.Context) error {
	return nil
}

func (m *Memory[V]) removeElement(el *list.Element) {
	m.order.Remove(el)
	delete(m.items, el.Value.(*entry[V]).key)
}
