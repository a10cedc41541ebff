package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	gridv1 "github.com/yndnr/gridsession-go/api/grid/v1"
	"github.com/yndnr/gridsession-go/internal/grid/badgergrid"
	"github.com/yndnr/gridsession-go/internal/grid/memgrid"
	"github.com/yndnr/gridsession-go/internal/grid/remote"
	"github.com/yndnr/gridsession-go/internal/grid/sqlgrid"
	"github.com/yndnr/gridsession-go/internal/server/gridserver"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// SessionCounts are the preload sizes benchmarked.
var SessionCounts = []int{1000, 10000}

var discard = slog.New(slog.DiscardHandler)

// engine opens a grid client for b and registers its cleanup.
type engine struct {
	name string
	open func(b *testing.B) any
}

var engines = []engine{
	{"memory", func(b *testing.B) any {
		c := memgrid.New(memgrid.WithSweepInterval(0))
		b.Cleanup(func() { _ = c.Close() })
		return c
	}},
	{"badger", func(b *testing.B) any {
		cfg := badgergrid.DefaultConfig(b.TempDir())
		cfg.GCInterval = 0
		c, err := badgergrid.Open(cfg, discard)
		if err != nil {
			b.Fatal(err)
		}
		b.Cleanup(func() { _ = c.Close() })
		return c
	}},
	{"sqlite", func(b *testing.B) any {
		c, err := sqlgrid.Open(sqlgrid.Config{
			Driver: sqlgrid.DriverSQLite,
			DSN:    filepath.Join(b.TempDir(), "grid.db"),
		}, discard)
		if err != nil {
			b.Fatal(err)
		}
		b.Cleanup(func() { _ = c.Close() })
		return c
	}},
	{"remote", func(b *testing.B) any {
		local := memgrid.New(memgrid.WithSweepInterval(0))
		var addr string
		members := func() []gridv1.Member { return []gridv1.Member{{ID: "bench", Addr: addr}} }
		srv := httptest.NewServer(gridserver.NewService(local, members, discard).Handler())
		addr = strings.TrimPrefix(srv.URL, "http://")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := remote.Dial(ctx, []string{addr}, remote.WithLogger(discard))
		if err != nil {
			b.Fatal(err)
		}
		b.Cleanup(func() {
			_ = c.Close()
			srv.Close()
			_ = local.Close()
		})
		return c
	}},
}

// newStore returns a store over client with the given codec.
func newStore(b *testing.B, client any, codec sessionstore.Codec, maps ...sessionstore.MapDescriptor) *sessionstore.Store {
	b.Helper()
	store, err := sessionstore.New(sessionstore.Config{Codec: codec, Maps: maps})
	if err != nil {
		b.Fatal(err)
	}
	if err := store.Attach(context.Background(), client); err != nil {
		b.Fatal(err)
	}
	return store
}

func newSession(i int) *sessionstore.Session {
	s := sessionstore.NewSession(time.Hour)
	s.SetValue("user", fmt.Sprintf("user-%d", i%1000))
	s.SetValue("views", i)
	s.SetValue("agent", "BenchmarkTest/1.0")
	return s
}

// prefill writes count sessions and returns their ids.
func prefill(b *testing.B, store *sessionstore.Store, count int) []string {
	b.Helper()
	ctx := context.Background()
	ids := make([]string, count)
	for i := range count {
		ids[i] = fmt.Sprintf("sid-%08d", i)
		if err := store.Set(ctx, ids[i], newSession(i)); err != nil {
			b.Fatalf("prefill: %v", err)
		}
	}
	return ids
}

// reportMemory reports heap usage after a GC.
func reportMemory(b *testing.B) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.HeapAlloc)/(1<<20), "heap-MB")
}
