package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gridv1 "github.com/yndnr/gridsession-go/api/grid/v1"
	"github.com/yndnr/gridsession-go/internal/grid/memgrid"
	"github.com/yndnr/gridsession-go/internal/server/gridserver"
	"github.com/yndnr/gridsession-go/pkg/grid"
)

type testNode struct {
	id     string
	engine *memgrid.Client
	srv    *httptest.Server
}

func (n *testNode) addr() string {
	return strings.TrimPrefix(n.srv.URL, "http://")
}

// startCluster starts n nodes that all report the full membership.
func startCluster(t *testing.T, n int, opts ...memgrid.Option) []*testNode {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	nodes := make([]*testNode, n)
	members := func() []gridv1.Member {
		out := make([]gridv1.Member, 0, len(nodes))
		for _, node := range nodes {
			out = append(out, gridv1.Member{ID: node.id, Addr: node.addr()})
		}
		return out
	}
	for i := range nodes {
		engine := memgrid.New(append([]memgrid.Option{memgrid.WithSweepInterval(0)}, opts...)...)
		svc := gridserver.NewService(engine, members, logger)
		nodes[i] = &testNode{
			id:     fmt.Sprintf("node-%d", i),
			engine: engine,
			srv:    httptest.NewServer(svc.Handler()),
		}
		t.Cleanup(func() {
			nodes[i].srv.Close()
			_ = engine.Close()
		})
	}
	return nodes
}

func dial(t *testing.T, seeds ...string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, seeds, WithLogger(slog.New(slog.DiscardHandler)), WithRefreshInterval(time.Hour))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDial_LearnsMembership(t *testing.T) {
	nodes := startCluster(t, 3)
	c := dial(t, nodes[1].addr())

	members := c.Members()
	if len(members) != 3 {
		t.Fatalf("Members() = %v, want 3 members", members)
	}
	for i, m := range members {
		if m.ID != nodes[i].id || m.Addr != nodes[i].addr() {
			t.Errorf("member %d = %+v", i, m)
		}
	}
}

func TestDial_Errors(t *testing.T) {
	if _, err := Dial(context.Background(), nil); err == nil {
		t.Error("Dial() without seeds should fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := Dial(ctx, []string{"127.0.0.1:1"}, WithLogger(slog.New(slog.DiscardHandler)))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Dial() to unreachable seed error = %v, want deadline exceeded", err)
	}
}

func TestMap_CRUD(t *testing.T) {
	nodes := startCluster(t, 3)
	c := dial(t, nodes[0].addr())
	ctx := context.Background()

	m, err := c.GetMap(ctx, "sessions")
	if err != nil {
		t.Fatalf("GetMap() error = %v", err)
	}
	if m.Name() != "sessions" {
		t.Errorf("Name() = %q", m.Name())
	}

	v, err := m.Get(ctx, "missing")
	if err != nil || v != nil {
		t.Fatalf("Get(missing) = %q, %v; want nil, nil", v, err)
	}

	for i := range 30 {
		key := fmt.Sprintf("sid-%02d", i)
		if err := m.Set(ctx, key, []byte("v"+key), 0); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}
	for i := range 30 {
		key := fmt.Sprintf("sid-%02d", i)
		v, err := m.Get(ctx, key)
		if err != nil || string(v) != "v"+key {
			t.Fatalf("Get(%s) = %q, %v", key, v, err)
		}
	}

	n, err := m.Size(ctx)
	if err != nil || n != 30 {
		t.Fatalf("Size() = %d, %v; want 30", n, err)
	}
	values, err := m.Values(ctx)
	if err != nil || len(values) != 30 {
		t.Fatalf("Values() = %d values, %v; want 30", len(values), err)
	}

	// Keys spread over more than one node.
	used := 0
	for _, node := range nodes {
		nm, _ := node.engine.GetMap(ctx, "sessions")
		if size, _ := nm.Size(ctx); size > 0 {
			used++
		}
	}
	if used < 2 {
		t.Errorf("keys landed on %d node(s), want at least 2", used)
	}

	if err := m.Delete(ctx, "sid-00"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if v, _ := m.Get(ctx, "sid-00"); v != nil {
		t.Errorf("Get() after Delete = %q", v)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n, _ := m.Size(ctx); n != 0 {
		t.Errorf("Size() after Clear = %d", n)
	}
}

func TestMap_EmptyValueIsPresent(t *testing.T) {
	nodes := startCluster(t, 1)
	c := dial(t, nodes[0].addr())
	ctx := context.Background()

	m, _ := c.GetMap(ctx, "m")
	if err := m.Set(ctx, "k", []byte{}, 0); err != nil {
		t.Fatal(err)
	}
	v, err := m.Get(ctx, "k")
	if err != nil || v == nil || len(v) != 0 {
		t.Errorf("Get() = %#v, %v; want empty non-nil", v, err)
	}
}

func TestMap_TTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	nodes := startCluster(t, 1, memgrid.WithClock(clock))
	c := dial(t, nodes[0].addr())
	ctx := context.Background()

	m, _ := c.GetMap(ctx, "m")
	if err := m.Set(ctx, "k", []byte("v"), 90*time.Second); err != nil {
		t.Fatal(err)
	}

	nm, _ := nodes[0].engine.GetMap(ctx, "m")
	ttl, ok := nm.(*memgrid.Map).TTL("k")
	if !ok || ttl != 90*time.Second {
		t.Errorf("stored TTL = %v, %v; want 90s", ttl, ok)
	}
}

func TestMap_ErrorMapping(t *testing.T) {
	nodes := startCluster(t, 1, memgrid.WithKnownMaps("known"))
	c := dial(t, nodes[0].addr())
	ctx := context.Background()

	m, _ := c.GetMap(ctx, "unknown")
	if _, err := m.Get(ctx, "k"); !errors.Is(err, grid.ErrMapNotFound) {
		t.Errorf("Get() on unknown map error = %v, want ErrMapNotFound", err)
	}

	nodes[0].engine.SetFault(func(op, name string) error { return grid.ErrClosed })
	known, _ := c.GetMap(ctx, "known")
	if err := known.Set(ctx, "k", nil, 0); !errors.Is(err, grid.ErrClosed) {
		t.Errorf("Set() on closed engine error = %v, want ErrClosed", err)
	}
}

func TestClient_InvalidName(t *testing.T) {
	nodes := startCluster(t, 1)
	c := dial(t, nodes[0].addr())

	if _, err := c.GetMap(context.Background(), ""); !errors.Is(err, grid.ErrInvalidName) {
		t.Errorf("GetMap(\"\") error = %v, want ErrInvalidName", err)
	}
}

func TestClient_GetMapAsyncWaitsForMembership(t *testing.T) {
	nodes := startCluster(t, 1)
	c := New([]string{nodes[0].addr()}, WithLogger(slog.New(slog.DiscardHandler)))
	defer c.Close()

	var _ grid.AsyncClient = c
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := c.GetMapAsync(ctx, "sessions").Await(ctx)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
}

func TestClient_Close(t *testing.T) {
	nodes := startCluster(t, 1)
	c := dial(t, nodes[0].addr())
	ctx := context.Background()

	m, _ := c.GetMap(ctx, "m")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal("second Close() should be a no-op")
	}
	if err := m.Set(ctx, "k", nil, 0); !errors.Is(err, grid.ErrClosed) {
		t.Errorf("Set() after Close error = %v, want ErrClosed", err)
	}
	if _, err := m.Size(ctx); !errors.Is(err, grid.ErrClosed) {
		t.Errorf("Size() after Close error = %v, want ErrClosed", err)
	}

	pending := New([]string{"127.0.0.1:1"}, WithLogger(slog.New(slog.DiscardHandler)))
	f := pending.GetMapAsync(ctx, "m")
	_ = pending.Close()
	if _, err := f.Await(ctx); !errors.Is(err, grid.ErrClosed) {
		t.Errorf("pending future error = %v, want ErrClosed", err)
	}
}

func TestClient_RefreshFallsBackToSeeds(t *testing.T) {
	nodes := startCluster(t, 2)
	c := dial(t, nodes[0].addr())

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(c.Members()) != 2 {
		t.Errorf("Members() = %v", c.Members())
	}
}
