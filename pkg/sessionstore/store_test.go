package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/gridsession-go/internal/grid/memgrid"
	"github.com/yndnr/gridsession-go/pkg/grid"
)

func newSession(views int64) *Session {
	maxAge := float64(time.Hour.Milliseconds())
	return &Session{
		Cookie: Cookie{Path: "/", HTTPOnly: true, MaxAge: &maxAge},
		Data: map[string]any{
			"views": views,
			"user":  map[string]any{"name": "ada", "admin": true},
		},
	}
}

func newAttachedStore(t *testing.T, cfg Config, opts ...memgrid.Option) (*Store, *memgrid.Client) {
	t.Helper()
	client := memgrid.New(append([]memgrid.Option{memgrid.WithSweepInterval(0)}, opts...)...)
	t.Cleanup(func() { client.Close() })

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.AttachClient(context.Background(), client); err != nil {
		t.Fatalf("AttachClient() error = %v", err)
	}
	return s, client
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, codec := range []Codec{JSONCodec{}, NewMsgpackCodec()} {
		t.Run(codec.Name(), func(t *testing.T) {
			s, _ := newAttachedStore(t, Config{Codec: codec})
			want := newSession(3)

			if err := s.Set(ctx, "sid-1", want); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := s.Get(ctx, "sid-1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Get() = %#v, want %#v", got, want)
			}
		})
	}
}

func TestStore_RoundTripNumbers(t *testing.T) {
	ctx := context.Background()
	const big = int64(1)<<53 + 1

	for _, codec := range []Codec{JSONCodec{}, NewMsgpackCodec()} {
		t.Run(codec.Name(), func(t *testing.T) {
			s, _ := newAttachedStore(t, Config{Codec: codec})
			sess := NewSession(time.Hour)
			sess.SetValue("n", 1)
			sess.SetValue("uid", big)
			sess.SetValue("neg", int32(-7))
			sess.SetValue("ratio", 1.5)
			sess.SetValue("nested", map[string]any{"id": big, "list": []any{2, "x"}})

			if err := s.Set(ctx, "sid", sess); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := s.Get(ctx, "sid")
			if err != nil || got == nil {
				t.Fatalf("Get() = %v, %v", got, err)
			}

			want := map[string]any{
				"n":      int64(1),
				"uid":    big,
				"neg":    int64(-7),
				"ratio":  1.5,
				"nested": map[string]any{"id": big, "list": []any{int64(2), "x"}},
			}
			if !reflect.DeepEqual(got.Data, want) {
				t.Errorf("Data = %#v, want %#v", got.Data, want)
			}
			if *got.Cookie.MaxAge != *sess.Cookie.MaxAge {
				t.Errorf("MaxAge = %v, want %v", *got.Cookie.MaxAge, *sess.Cookie.MaxAge)
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newAttachedStore(t, Config{})
	ctx := context.Background()

	got, err := s.Get(ctx, "never-written")
	if err != nil || got != nil {
		t.Fatalf("Get(missing) = %v, %v; want nil, nil", got, err)
	}

	s.Set(ctx, "sid", newSession(1))
	if err := s.Destroy(ctx, "sid"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	got, err = s.Get(ctx, "sid")
	if err != nil || got != nil {
		t.Errorf("Get(destroyed) = %v, %v; want nil, nil", got, err)
	}
}

func TestStore_DestroyMissing(t *testing.T) {
	s, _ := newAttachedStore(t, Config{})
	if err := s.Destroy(context.Background(), "nobody"); err != nil {
		t.Errorf("Destroy(missing) error = %v", err)
	}
}

func TestStore_ClearLengthAll(t *testing.T) {
	s, _ := newAttachedStore(t, Config{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Set(ctx, fmt.Sprintf("sid-%d", i), newSession(int64(i))); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	n, err := s.Length(ctx)
	if err != nil || n != 5 {
		t.Fatalf("Length() = %d, %v; want 5", n, err)
	}
	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != n {
		t.Errorf("len(All()) = %d, Length() = %d", len(all), n)
	}
	views := make([]int64, 0, len(all))
	for _, sess := range all {
		views = append(views, sess.Data["views"].(int64))
	}
	sort.Slice(views, func(i, j int) bool { return views[i] < views[j] })
	if !reflect.DeepEqual(views, []int64{0, 1, 2, 3, 4}) {
		t.Errorf("All() views = %v", views)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n, _ := s.Length(ctx); n != 0 {
		t.Errorf("Length() after Clear = %d", n)
	}
	for i := 0; i < 5; i++ {
		if got, _ := s.Get(ctx, fmt.Sprintf("sid-%d", i)); got != nil {
			t.Errorf("sid-%d survived Clear", i)
		}
	}
}

func TestStore_NotInitialized(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	sess := newSession(1)

	ops := map[string]func() error{
		"all":     func() error { _, err := s.All(ctx); return err },
		"destroy": func() error { return s.Destroy(ctx, "sid") },
		"clear":   func() error { return s.Clear(ctx) },
		"length":  func() error { _, err := s.Length(ctx); return err },
		"get":     func() error { _, err := s.Get(ctx, "sid"); return err },
		"set":     func() error { return s.Set(ctx, "sid", sess) },
		"touch":   func() error { return s.Touch(ctx, "sid", sess) },
		"getFromMap": func() error {
			_, err := s.GetFromMap(ctx, "sid", 0, new(Session))
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, ErrNotInitialized) {
				t.Errorf("%s error = %v, want ErrNotInitialized", name, err)
			}
		})
	}
	if s.Attached() {
		t.Error("Attached() = true before attach")
	}
}

func TestStore_NotConstructed(t *testing.T) {
	ctx := context.Background()
	client := memgrid.New(memgrid.WithSweepInterval(0))
	defer client.Close()

	stores := map[string]*Store{
		"zero value": {},
		"new":        new(Store),
		"nil":        nil,
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			if err := s.AttachClient(ctx, client); !errors.Is(err, ErrNotConstructed) {
				t.Errorf("AttachClient() error = %v, want ErrNotConstructed", err)
			}
			if err := s.Attach(ctx, client); !errors.Is(err, ErrNotConstructed) {
				t.Errorf("Attach() error = %v, want ErrNotConstructed", err)
			}
			if s.Attached() {
				t.Error("Attached() = true")
			}

			ops := map[string]func() error{
				"Get":     func() error { _, err := s.Get(ctx, "sid"); return err },
				"All":     func() error { _, err := s.All(ctx); return err },
				"Length":  func() error { _, err := s.Length(ctx); return err },
				"Set":     func() error { return s.Set(ctx, "sid", newSession(1)) },
				"Touch":   func() error { return s.Touch(ctx, "sid", newSession(1)) },
				"Destroy": func() error { return s.Destroy(ctx, "sid") },
				"Clear":   func() error { return s.Clear(ctx) },
				"GetFromMap": func() error {
					var dst map[string]any
					_, err := s.GetFromMap(ctx, "sid", 0, &dst)
					return err
				},
			}
			for op, call := range ops {
				if err := call(); !errors.Is(err, ErrNotConstructed) {
					t.Errorf("%s() error = %v, want ErrNotConstructed", op, err)
				}
			}
		})
	}
}

func TestStore_AttachAllOrNothing(t *testing.T) {
	client := memgrid.New(memgrid.WithSweepInterval(0), memgrid.WithKnownMaps("Sessions"))
	defer client.Close()

	s, err := New(Config{Maps: []MapDescriptor{{Name: "Sessions"}, {Name: "Missing"}}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = s.AttachClient(context.Background(), client)
	if !errors.Is(err, grid.ErrMapNotFound) {
		t.Fatalf("AttachClient() error = %v, want ErrMapNotFound", err)
	}
	if s.Attached() {
		t.Error("store reports attached after a failed attach")
	}
	if _, err := s.Get(context.Background(), "sid"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Get() error = %v, want ErrNotInitialized", err)
	}
}

func TestStore_AttachAsyncClient(t *testing.T) {
	client := memgrid.New(memgrid.WithSweepInterval(0))
	defer client.Close()
	ctx := context.Background()

	s, _ := New(Config{Maps: []MapDescriptor{{Name: "Sessions"}, {Name: "Audit"}}})
	if err := s.AttachAsyncClient(ctx, client.Async(5*time.Millisecond)); err != nil {
		t.Fatalf("AttachAsyncClient() error = %v", err)
	}
	if err := s.Set(ctx, "sid", newSession(1)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	audit, _ := client.GetMap(ctx, "Audit")
	if v, _ := audit.Get(ctx, "sid"); v == nil {
		t.Error("secondary map was not written")
	}
}

func TestStore_AttachDispatch(t *testing.T) {
	client := memgrid.New(memgrid.WithSweepInterval(0))
	defer client.Close()
	ctx := context.Background()

	s, _ := New(Config{})
	if err := s.Attach(ctx, "not a client"); !errors.Is(err, grid.ErrUnsupportedClient) {
		t.Errorf("Attach(string) error = %v, want ErrUnsupportedClient", err)
	}
	if err := s.AttachClient(ctx, nil); !errors.Is(err, grid.ErrUnsupportedClient) {
		t.Errorf("AttachClient(nil) error = %v, want ErrUnsupportedClient", err)
	}
	if err := s.Attach(ctx, client.Async(0)); err != nil {
		t.Errorf("Attach(async) error = %v", err)
	}
	if !s.Attached() {
		t.Error("Attached() = false")
	}
}

func TestStore_ReattachReplacesClient(t *testing.T) {
	ctx := context.Background()
	first := memgrid.New(memgrid.WithSweepInterval(0))
	second := memgrid.New(memgrid.WithSweepInterval(0))
	defer first.Close()
	defer second.Close()

	s, _ := New(Config{})
	s.AttachClient(ctx, first)
	s.Set(ctx, "sid", newSession(1))

	if err := s.AttachClient(ctx, second); err != nil {
		t.Fatalf("second AttachClient() error = %v", err)
	}
	if got, _ := s.Get(ctx, "sid"); got != nil {
		t.Error("store still reads from the first client")
	}
}

func TestStore_PartialFailure(t *testing.T) {
	boom := errors.New("backup unavailable")
	s, client := newAttachedStore(t,
		Config{Maps: []MapDescriptor{{Name: "Sessions"}, {Name: "Backup"}}},
		memgrid.WithFault(func(op, name string) error {
			if name == "Backup" && op != "get" {
				return boom
			}
			return nil
		}),
	)
	ctx := context.Background()

	err := s.Set(ctx, "sid", newSession(1))
	if !errors.Is(err, boom) {
		t.Fatalf("Set() error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "Backup") {
		t.Errorf("error %q does not name the failing map", err)
	}

	// Sibling writes are not rolled back.
	if got, _ := s.Get(ctx, "sid"); got == nil {
		t.Error("primary write was rolled back")
	}

	if err := s.Destroy(ctx, "sid"); !errors.Is(err, boom) {
		t.Errorf("Destroy() error = %v, want %v", err, boom)
	}
	if err := s.Clear(ctx); !errors.Is(err, boom) {
		t.Errorf("Clear() error = %v, want %v", err, boom)
	}

	client.SetFault(nil)
	if err := s.Set(ctx, "sid", newSession(2)); err != nil {
		t.Errorf("Set() after recovery error = %v", err)
	}
}

func TestStore_TransportErrorOnRead(t *testing.T) {
	boom := errors.New("partition")
	s, _ := newAttachedStore(t, Config{}, memgrid.WithFault(func(op, _ string) error {
		if op == "get" || op == "size" || op == "values" {
			return boom
		}
		return nil
	}))
	ctx := context.Background()

	if _, err := s.Get(ctx, "sid"); !errors.Is(err, boom) {
		t.Errorf("Get() error = %v", err)
	}
	if _, err := s.Length(ctx); !errors.Is(err, boom) {
		t.Errorf("Length() error = %v", err)
	}
	if _, err := s.All(ctx); !errors.Is(err, boom) {
		t.Errorf("All() error = %v", err)
	}
	if err := s.Destroy(ctx, "sid"); !errors.Is(err, boom) {
		t.Errorf("Destroy() error = %v", err)
	}
}

func TestStore_CodecError(t *testing.T) {
	s, client := newAttachedStore(t, Config{})
	ctx := context.Background()

	m, _ := client.GetMap(ctx, "Sessions")
	m.Set(ctx, "garbage", []byte("{not json"), 0)

	if _, err := s.Get(ctx, "garbage"); !errors.Is(err, ErrCodec) {
		t.Errorf("Get() error = %v, want ErrCodec", err)
	}
	if _, err := s.All(ctx); !errors.Is(err, ErrCodec) {
		t.Errorf("All() error = %v, want ErrCodec", err)
	}

	bad := newSession(1)
	bad.Data["ch"] = make(chan int)
	if err := s.Set(ctx, "sid", bad); !errors.Is(err, ErrCodec) {
		t.Errorf("Set() error = %v, want ErrCodec", err)
	}
}

type profile struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

func profileBean(s *Session) (any, error) {
	u, ok := s.Data["user"].(map[string]any)
	if !ok {
		return nil, errors.New("session has no user")
	}
	name, _ := u["name"].(string)
	admin, _ := u["admin"].(bool)
	return profile{Name: name, Admin: admin}, nil
}

func TestStore_BeanMap(t *testing.T) {
	s, _ := newAttachedStore(t, Config{Maps: []MapDescriptor{
		{Name: "Sessions"},
		{Name: "Profiles", Bean: profileBean},
	}})
	ctx := context.Background()
	sess := newSession(7)

	if err := s.Set(ctx, "sid", sess); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var p profile
	found, err := s.GetFromMap(ctx, "sid", 1, &p)
	if err != nil || !found {
		t.Fatalf("GetFromMap() = %v, %v", found, err)
	}
	if p != (profile{Name: "ada", Admin: true}) {
		t.Errorf("bean = %+v", p)
	}

	bean, err := GetBean[profile](ctx, s, "sid", 1)
	if err != nil || bean == nil || *bean != p {
		t.Errorf("GetBean() = %+v, %v", bean, err)
	}

	got, err := s.Get(ctx, "sid")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(got, sess) {
		t.Errorf("primary value was transformed: %#v", got)
	}

	if missing, err := GetBean[profile](ctx, s, "other", 1); missing != nil || err != nil {
		t.Errorf("GetBean(missing) = %v, %v", missing, err)
	}

	for _, idx := range []int{-1, 2} {
		if _, err := s.GetFromMap(ctx, "sid", idx, &p); !errors.Is(err, ErrMapIndex) {
			t.Errorf("GetFromMap(index %d) error = %v, want ErrMapIndex", idx, err)
		}
	}
}

func TestStore_BeanError(t *testing.T) {
	s, _ := newAttachedStore(t, Config{Maps: []MapDescriptor{
		{Name: "Sessions"},
		{Name: "Profiles", Bean: profileBean},
	}})
	ctx := context.Background()

	sess := &Session{Data: map[string]any{"views": 1.0}}
	if err := s.Set(ctx, "sid", sess); err == nil || !strings.Contains(err.Error(), "no user") {
		t.Errorf("Set() error = %v, want bean failure", err)
	}
}

func userKey(_ string, s *Session) (string, error) {
	u, ok := s.Data["user"].(map[string]any)
	if !ok {
		return "", errors.New("session has no user")
	}
	return "user:" + u["name"].(string), nil
}

func TestStore_KeyedMap(t *testing.T) {
	s, client := newAttachedStore(t, Config{Maps: []MapDescriptor{
		{Name: "Sessions"},
		{Name: "ByUser", Key: userKey, Bean: profileBean},
		{Name: "Mirror"},
	}})
	ctx := context.Background()

	if err := s.Set(ctx, "sid", newSession(1)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	byUser, _ := client.GetMap(ctx, "ByUser")
	if v, _ := byUser.Get(ctx, "user:ada"); v == nil {
		t.Fatal("keyed map was not written under the derived key")
	}
	if v, _ := byUser.Get(ctx, "sid"); v != nil {
		t.Error("keyed map was written under the session id")
	}

	if err := s.Destroy(ctx, "sid"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	mirror, _ := client.GetMap(ctx, "Mirror")
	if v, _ := mirror.Get(ctx, "sid"); v != nil {
		t.Error("Destroy left the session in an id-keyed map")
	}
	if v, _ := byUser.Get(ctx, "user:ada"); v == nil {
		t.Error("Destroy unexpectedly removed the entry from a keyed map")
	}
}

func TestStore_ConcurrentFanOut(t *testing.T) {
	var inflight, peak atomic.Int32
	release := make(chan struct{})
	s, _ := newAttachedStore(t,
		Config{Maps: []MapDescriptor{{Name: "A"}, {Name: "B"}, {Name: "C"}}},
		memgrid.WithFault(func(op, _ string) error {
			if op != "set" {
				return nil
			}
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			if n == 3 {
				close(release)
			}
			select {
			case <-release:
			case <-time.After(2 * time.Second):
			}
			inflight.Add(-1)
			return nil
		}),
	)

	if err := s.Set(context.Background(), "sid", newSession(1)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if peak.Load() != 3 {
		t.Errorf("peak concurrent writes = %d, want 3", peak.Load())
	}
}

func TestStore_Observer(t *testing.T) {
	var ops []Op
	var errs []error
	obs := ObserverFunc(func(ctx context.Context, op Op) (context.Context, func(error)) {
		return ctx, func(err error) {
			ops = append(ops, op)
			errs = append(errs, err)
		}
	})

	client := memgrid.New(memgrid.WithSweepInterval(0))
	defer client.Close()
	ctx := context.Background()

	s, _ := New(Config{}, WithObserver(obs))
	s.Get(ctx, "sid") // not initialized: not observed
	s.AttachClient(ctx, client)
	s.Set(ctx, "sid", newSession(1))
	s.Get(ctx, "sid")

	want := []Op{OpAttach, OpSet, OpGet}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("observed ops = %v, want %v", ops, want)
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("op %s observed error %v", ops[i], err)
		}
	}
}

func TestObservers_Order(t *testing.T) {
	var trace []string
	mk := func(name string) Observer {
		return ObserverFunc(func(ctx context.Context, op Op) (context.Context, func(error)) {
			trace = append(trace, "start "+name)
			return ctx, func(error) { trace = append(trace, "end "+name) }
		})
	}

	_, done := Observers{mk("a"), nil, mk("b")}.StartOp(context.Background(), OpGet)
	done(nil)

	want := []string{"start a", "start b", "end b", "end a"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestStore_ConfigIsCopied(t *testing.T) {
	maps := []MapDescriptor{{Name: "Sessions"}}
	s, err := New(Config{Maps: maps})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	maps[0].Name = "Changed"

	if got := s.Config().Maps[0].Name; got != "Sessions" {
		t.Errorf("store config aliased caller slice: %q", got)
	}
	cfg := s.Config()
	cfg.Maps[0].Name = "Mutated"
	if got := s.Config().Maps[0].Name; got != "Sessions" {
		t.Errorf("Config() exposes internal slice: %q", got)
	}
}
