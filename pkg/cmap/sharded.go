package cmap

import (
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Map is a concurrent-safe sharded map with optional per-entry expiry.
type Map[V any] struct {
	shards    []*shard[V]
	shardMask uint32
	now       Clock
}

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero: never expires
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
}

// Option configures a Map.
type Option func(*options)

type options struct {
	shards int
	clock  Clock
}

// WithShardCount sets the shard count. Values that are not a positive power
// of two fall back to DefaultShardCount.
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shards = n
	}
}

// WithClock sets the time source used for expiry decisions.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// New creates a new sharded map.
func New[V any](opts ...Option) *Map[V] {
	o := options{shards: DefaultShardCount, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.shards <= 0 || o.shards&(o.shards-1) != 0 {
		o.shards = DefaultShardCount
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	m := &Map[V]{
		shards:    make([]*shard[V], o.shards),
		shardMask: uint32(o.shards - 1),
		now:       o.clock,
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]entry[V])}
	}
	return m
}

func (m *Map[V]) getShard(key string) *shard[V] {
	return m.shards[murmur3.Sum32([]byte(key))&m.shardMask]
}

// Get retrieves a live value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.getShard(key)
	now := m.now()

	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if e.expired(now) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have replaced it.
		if cur, ok := s.items[key]; ok && cur.expired(now) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value without expiry.
func (m *Map[V]) Set(key string, value V) {
	m.SetWithTTL(key, value, 0)
}

// SetWithTTL stores a value that expires after ttl. A ttl <= 0 never expires.
func (m *Map[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	s := m.getShard(key)
	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()
}

// Delete removes a key.
func (m *Map[V]) Delete(key string) {
	s := m.getShard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Pop removes a key and returns its live value.
func (m *Map[V]) Pop(key string) (V, bool) {
	s := m.getShard(key)
	now := m.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(s.items, key)
	if e.expired(now) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Has reports whether a live value exists for key.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// TTL returns the remaining lifetime of key. The second result is false if
// the key is absent; a live key without expiry reports a zero duration.
func (m *Map[V]) TTL(key string) (time.Duration, bool) {
	s := m.getShard(key)
	now := m.now()

	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()

	if !ok || e.expired(now) {
		return 0, false
	}
	if e.expiresAt.IsZero() {
		return 0, true
	}
	return e.expiresAt.Sub(now), true
}

// Count returns the number of live items.
func (m *Map[V]) Count() int {
	now := m.now()
	count := 0
	for _, s := range m.shards {
		s.mu.RLock()
		for _, e := range s.items {
			if !e.expired(now) {
				count++
			}
		}
		s.mu.RUnlock()
	}
	return count
}

// Clear removes all items.
func (m *Map[V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[string]entry[V])
		s.mu.Unlock()
	}
}

// ShardCount returns the number of shards.
func (m *Map[V]) ShardCount() int {
	return len(m.shards)
}
