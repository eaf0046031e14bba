package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openparatransit/paraplan/internal/model"
)

// Memory is a fixed-capacity in-process cache with LRU eviction and a
// uniform TTL. A zero TTL means entries never expire.
//
// Layout: a map from key to list element for O(1) lookup, plus a doubly
// linked list holding recency order (front = most recently used). Expired
// entries are removed lazily on Get and preferentially on eviction.
//
// Safe for concurrent use; a single mutex guards both structures.
type Memory struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	data     map[string]*list.Element
	lru      *list.List

	now func() time.Time // injectable for tests
}

type memoryEntry struct {
	key      string
	route    model.Route
	expireAt time.Time // zero means never
}

// NewMemory creates an in-memory cache. Capacity must be positive.
func NewMemory(capacity int, ttl time.Duration) (*Memory, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache: memory capacity must be positive, got %d", capacity)
	}
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		data:     make(map[string]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}, nil
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !e.expireAt.After(now)
}

// Get returns the route for key and marks it most recently used. Expired
// entries are deleted and reported as misses.
func (m *Memory) Get(_ context.Context, key string) (model.Route, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.data[key]
	if !ok {
		return model.Route{}, false, nil
	}
	entry := elem.Value.(*memoryEntry)
	if entry.expired(m.now()) {
		m.remove(elem)
		return model.Route{}, false, nil
	}
	m.lru.MoveToFront(elem)
	return entry.route, true, nil
}

// Put inserts the route under key. A present key is replaced; at capacity an
// expired entry is evicted first if one exists, otherwise the least recently
// used one.
func (m *Memory) Put(_ context.Context, key string, route model.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.data[key]; ok {
		m.remove(elem)
	} else if m.lru.Len() >= m.capacity {
		m.evictOne()
	}

	entry := &memoryEntry{key: key, route: route}
	if m.ttl > 0 {
		entry.expireAt = m.now().Add(m.ttl)
	}
	m.data[key] = m.lru.PushFront(entry)
	return nil
}

// CleanExpired removes every expired entry and returns how many were removed.
func (m *Memory) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for elem := m.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).expired(now) {
			m.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Entries returns a snapshot of the live (non-expired) entries.
func (m *Memory) Entries() map[string]model.Route {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make(map[string]model.Route, len(m.data))
	for key, elem := range m.data {
		entry := elem.Value.(*memoryEntry)
		if !entry.expired(now) {
			out[key] = entry.route
		}
	}
	return out
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// evictOne frees one slot: the oldest expired entry if any, else the LRU
// entry at the back of the list.
func (m *Memory) evictOne() {
	now := m.now()
	for elem := m.lru.Back(); elem != nil; elem = elem.Prev() {
		if elem.Value.(*memoryEntry).expired(now) {
			m.remove(elem)
			return
		}
	}
	if back := m.lru.Back(); back != nil {
		m.remove(back)
	}
}

func (m *Memory) remove(elem *list.Element) {
	delete(m.data, elem.Value.(*memoryEntry).key)
	m.lru.Remove(elem)
}
