package cmap

// Range calls fn for every live entry until fn returns false.
//
// Locks are taken shard by shard, so the view is not a consistent snapshot.
// fn must not call back into the map.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	now := m.now()
	for _, s := range m.shards {
		s.mu.RLock()
		for k, e := range s.items {
			if e.expired(now) {
				continue
			}
			if !fn(k, e.value) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns all live keys.
func (m *Map[V]) Keys() []string {
	keys := make([]string, 0)
	m.Range(func(key string, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns all live values.
func (m *Map[V]) Values() []V {
	values := make([]V, 0)
	m.Range(func(_ string, value V) bool {
		values = append(values, value)
		return true
	})
	return values
}

// Sweep physically removes expired entries and returns how many were dropped.
func (m *Map[V]) Sweep() int {
	now := m.now()
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, e := range s.items {
			if e.expired(now) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// ShardStats describes one shard.
type ShardStats struct {
	Index int
	Count int
}

// Stats returns raw per-shard entry counts, expired entries included.
func (m *Map[V]) Stats() []ShardStats {
	stats := make([]ShardStats, len(m.shards))
	for i, s := range m.shards {
		s.mu.RLock()
		stats[i] = ShardStats{Index: i, Count: len(s.items)}
		s.mu.RUnlock()
	}
	return stats
}
