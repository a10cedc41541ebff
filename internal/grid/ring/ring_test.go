package ring

import (
	"fmt"
	"testing"
)

func nodes(n int) []Node {
	out := make([]Node, n)
	for i := range out {
		out[i] = Node{ID: fmt.Sprintf("node-%d", i), Addr: fmt.Sprintf("10.0.0.%d:7080", i)}
	}
	return out
}

func TestRing_Empty(t *testing.T) {
	r := New(0)
	if _, ok := r.Locate("k"); ok {
		t.Error("Locate() on empty ring ok = true")
	}
	if r.vnodes != DefaultVirtualNodes {
		t.Errorf("vnodes = %d", r.vnodes)
	}
}

func TestRing_Deterministic(t *testing.T) {
	a, b := New(64), New(64)
	ns := nodes(3)
	for _, n := range ns {
		a.Add(n)
	}
	for i := len(ns) - 1; i >= 0; i-- {
		b.Add(ns[i])
	}

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("sid-%d", i)
		na, _ := a.Locate(key)
		nb, _ := b.Locate(key)
		if na != nb {
			t.Fatalf("Locate(%q) differs by insertion order: %v vs %v", key, na, nb)
		}
	}
}

func TestRing_Distribution(t *testing.T) {
	r := New(0)
	r.Set(nodes(4))

	counts := map[string]int{}
	const keys = 20000
	for i := 0; i < keys; i++ {
		n, _ := r.Locate(fmt.Sprintf("sid-%d", i))
		counts[n.ID]++
	}
	if len(counts) != 4 {
		t.Fatalf("keys landed on %d nodes, want 4", len(counts))
	}
	for id, c := range counts {
		if c < keys/8 || c > keys/2 {
			t.Errorf("%s owns %d of %d keys", id, c, keys)
		}
	}
}

func TestRing_RemoveMovesOnlyOwnedKeys(t *testing.T) {
	r := New(0)
	r.Set(nodes(3))

	before := map[string]string{}
	for i := 0; i < 2000; i++ {
		k := fmt.Sprintf("k%d", i)
		n, _ := r.Locate(k)
		before[k] = n.ID
	}

	v := r.Version()
	r.Remove("node-1")
	if r.Version() == v {
		t.Error("Version() unchanged after Remove")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d", r.Len())
	}

	for k, owner := range before {
		n, _ := r.Locate(k)
		if n.ID == "node-1" {
			t.Fatalf("%s still routed to removed node", k)
		}
		if owner != "node-1" && n.ID != owner {
			t.Fatalf("%s moved from %s to %s", k, owner, n.ID)
		}
	}

	r.Remove("absent")
	if r.Len() != 2 {
		t.Error("Remove(absent) changed membership")
	}
}

func TestRing_AddIdempotent(t *testing.T) {
	r := New(8)
	n := Node{ID: "a", Addr: "x:1"}
	r.Add(n)
	v := r.Version()
	r.Add(n)
	if r.Version() != v {
		t.Error("re-adding an identical node bumped the version")
	}

	r.Add(Node{ID: "a", Addr: "y:2"})
	got, _ := r.Locate("any")
	if got.Addr != "y:2" {
		t.Errorf("address not updated: %v", got)
	}
	if len(r.hashes) != 8 {
		t.Errorf("hashes = %d, want 8", len(r.hashes))
	}
}

func TestRing_Nodes(t *testing.T) {
	r := New(4)
	r.Set([]Node{{ID: "c"}, {ID: "a"}, {ID: "b"}})
	got := r.Nodes()
	if len(got) != 3 || got[0].ID != "a" || got[2].ID != "c" {
		t.Errorf("Nodes() = %v", got)
	}
}
