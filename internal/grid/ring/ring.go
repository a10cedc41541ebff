// Package ring implements a consistent hash ring with virtual nodes.
//
// Keys and virtual nodes are hashed with 64-bit MurmurHash3. A key belongs
// to the first virtual node at or after its hash, wrapping around.
package ring

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultVirtualNodes is the number of virtual nodes per member.
const DefaultVirtualNodes = 128

// Node is one ring member.
type Node struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

// Ring maps keys to nodes. It is safe for concurrent use.
type Ring struct {
	mu      sync.RWMutex
	vnodes  int
	nodes   map[string]Node
	owners  map[uint64]string
	hashes  []uint64
	version uint64
}

// New creates an empty ring. vnodes <= 0 uses DefaultVirtualNodes.
func New(vnodes int) *Ring {
	if vnodes <= 0 {
		vnodes = DefaultVirtualNodes
	}
	return &Ring{
		vnodes: vnodes,
		nodes:  make(map[string]Node),
		owners: make(map[uint64]string),
	}
}

// Add inserts n, replacing a member with the same ID.
func (r *Ring) Add(n Node) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.nodes[n.ID]; ok && old == n {
		return
	}
	r.nodes[n.ID] = n
	for i := 0; i < r.vnodes; i++ {
		r.owners[hashVirtual(n.ID, i)] = n.ID
	}
	r.rebuild()
}

// Remove deletes the member with the given ID.
func (r *Ring) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[id]; !ok {
		return
	}
	delete(r.nodes, id)
	for i := 0; i < r.vnodes; i++ {
		h := hashVirtual(id, i)
		if r.owners[h] == id {
			delete(r.owners, h)
		}
	}
	r.rebuild()
}

// Set replaces the membership with nodes.
func (r *Ring) Set(nodes []Node) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes = make(map[string]Node, len(nodes))
	r.owners = make(map[uint64]string, len(nodes)*r.vnodes)
	for _, n := range nodes {
		r.nodes[n.ID] = n
		for i := 0; i < r.vnodes; i++ {
			r.owners[hashVirtual(n.ID, i)] = n.ID
		}
	}
	r.rebuild()
}

// Locate returns the node owning key. ok is false on an empty ring.
func (r *Ring) Locate(key string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.hashes) == 0 {
		return Node{}, false
	}
	h := murmur3.Sum64([]byte(key))
	idx := sort.Search(len(r.hashes), func(i int) bool {
		return r.hashes[i] >= h
	})
	if idx == len(r.hashes) {
		idx = 0
	}
	return r.nodes[r.owners[r.hashes[idx]]], true
}

// Nodes returns the members sorted by ID.
func (r *Ring) Nodes() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of members.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Version increases on every membership change.
func (r *Ring) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// rebuild must be called with mu held.
func (r *Ring) rebuild() {
	r.hashes = r.hashes[:0]
	for h := range r.owners {
		r.hashes = append(r.hashes, h)
	}
	sort.Slice(r.hashes, func(i, j int) bool { return r.hashes[i] < r.hashes[j] })
	r.version++
}

func hashVirtual(id string, i int) uint64 {
	h := murmur3.New64()
	h.Write([]byte(id))
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(i))
	h.Write(idx[:])
	return h.Sum64()
}
