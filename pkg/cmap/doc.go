// Package cmap provides a concurrent, sharded string-keyed map with
// per-entry expiry.
//
// Keys are spread over a power-of-two number of shards with MurmurHash3;
// each shard has its own RWMutex, so readers and writers on different
// shards never contend.
//
// Expiry is lazy: an expired entry is invisible to Get, Count, Range and
// Values from the moment its deadline passes, and is physically removed the
// next time it is touched or when Sweep runs.
//
// Usage:
//
//	m := cmap.New[[]byte]()
//	m.SetWithTTL("sid-1", payload, 30*time.Minute)
//	v, ok := m.Get("sid-1")
package cmap
