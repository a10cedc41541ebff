package sessionstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/gridsession-go/pkg/grid"
)

// SessionStore is the session-store contract a session middleware drives.
type SessionStore interface {
	Get(ctx context.Context, sid string) (*Session, error)
	Set(ctx context.Context, sid string, s *Session) error
	Touch(ctx context.Context, sid string, s *Session) error
	Destroy(ctx context.Context, sid string) error
	All(ctx context.Context) ([]*Session, error)
	Clear(ctx context.Context) error
	Length(ctx context.Context) (int, error)
}

var _ SessionStore = (*Store)(nil)

// Store persists sessions in grid maps. Create it with New.
//
// Go cannot forbid a Store literal, so a zero-value or nil Store compiles.
// Misuse surfaces at the first call instead: every operation, Attach
// included, returns ErrNotConstructed, and Attached reports false.
type Store struct {
	cfg      Config
	log      *slog.Logger
	observer Observer

	// bindings is published once per successful attach. Nil until then.
	bindings atomic.Pointer[[]binding]

	constructed bool
}

type binding struct {
	index int
	desc  MapDescriptor
	m     grid.Map
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver installs an operation observer.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// New merges cfg over the defaults, validates it and returns a Store with
// no client attached.
func New(cfg Config, opts ...Option) (*Store, error) {
	merged := MergeConfig(cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		cfg:         merged,
		log:         slog.New(slog.DiscardHandler),
		observer:    nopObserver{},
		constructed: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "sessionstore")
	return s, nil
}

// Config returns a copy of the store's merged configuration.
func (s *Store) Config() Config {
	if s == nil {
		return Config{}
	}
	out := s.cfg
	out.Maps = append([]MapDescriptor(nil), s.cfg.Maps...)
	return out
}

// AttachClient binds every configured map through a client that returns
// resolved map handles.
func (s *Store) AttachClient(ctx context.Context, c grid.Client) error {
	if c == nil {
		return s.attach(ctx, nil)
	}
	return s.attach(ctx, grid.SyncResolver(c))
}

// AttachAsyncClient binds every configured map through a client that returns
// map handles as futures.
func (s *Store) AttachAsyncClient(ctx context.Context, c grid.AsyncClient) error {
	if c == nil {
		return s.attach(ctx, nil)
	}
	return s.attach(ctx, grid.AsyncResolver(c))
}

// Attach binds through any value implementing grid.AsyncClient or
// grid.Client.
func (s *Store) Attach(ctx context.Context, client any) error {
	if s == nil || !s.constructed {
		return ErrNotConstructed
	}
	r, err := grid.ResolverFor(client)
	if err != nil {
		return err
	}
	return s.attach(ctx, r)
}

func (s *Store) attach(ctx context.Context, r grid.Resolver) (err error) {
	if s == nil || !s.constructed {
		return ErrNotConstructed
	}
	if r == nil {
		return grid.ErrUnsupportedClient
	}

	ctx, done := s.observer.StartOp(ctx, OpAttach)
	defer func() { done(err) }()

	start := time.Now()
	maps, err := grid.ResolveAll(ctx, r, s.cfg.MapNames())
	if err != nil {
		s.log.Error("attach grid client", "error", err)
		return err
	}

	bs := make([]binding, len(maps))
	for i, m := range maps {
		bs[i] = binding{index: i, desc: s.cfg.Maps[i], m: m}
	}
	if prev := s.bindings.Swap(&bs); prev != nil {
		s.log.Info("grid client replaced", "maps", len(bs))
	}
	s.log.Info("grid client attached", "maps", s.cfg.MapNames(), "elapsed", time.Since(start))
	return nil
}

// Attached reports whether a client has been attached.
func (s *Store) Attached() bool {
	return s != nil && s.constructed && s.bindings.Load() != nil
}

// bound returns the current bindings or the synchronous precondition error.
func (s *Store) bound() ([]binding, error) {
	if s == nil || !s.constructed {
		return nil, ErrNotConstructed
	}
	bs := s.bindings.Load()
	if bs == nil {
		return nil, ErrNotInitialized
	}
	return *bs, nil
}

// Get loads a session from the primary map. It returns nil and no error when
// sid is absent.
func (s *Store) Get(ctx context.Context, sid string) (sess *Session, err error) {
	bs, err := s.bound()
	if err != nil {
		return nil, err
	}
	ctx, done := s.observer.StartOp(ctx, OpGet)
	defer func() { done(err) }()

	sess = new(Session)
	found, err := s.read(ctx, bs[0], sid, sess)
	if err != nil || !found {
		return nil, err
	}
	return sess, nil
}

// All returns every session in the primary map, in the grid's order.
func (s *Store) All(ctx context.Context) (out []*Session, err error) {
	bs, err := s.bound()
	if err != nil {
		return nil, err
	}
	ctx, done := s.observer.StartOp(ctx, OpAll)
	defer func() { done(err) }()

	primary := bs[0]
	values, err := primary.m.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("values of %s: %w", primary.desc.Name, err)
	}

	out = make([]*Session, 0, len(values))
	for _, raw := range values {
		sess := new(Session)
		if err := s.cfg.Codec.Unmarshal(raw, sess); err != nil {
			return nil, ErrCodec.WithDetails("decode value of %s", primary.desc.Name).WithCause(err)
		}
		out = append(out, sess)
	}
	return out, nil
}

// Length returns the number of entries in the primary map.
func (s *Store) Length(ctx context.Context) (n int, err error) {
	bs, err := s.bound()
	if err != nil {
		return 0, err
	}
	ctx, done := s.observer.StartOp(ctx, OpLength)
	defer func() { done(err) }()

	n, err = bs[0].m.Size(ctx)
	if err != nil {
		return 0, fmt.Errorf("size of %s: %w", bs[0].desc.Name, err)
	}
	return n, nil
}

// Set writes sess to every configured map concurrently with one shared TTL.
// It returns after all writes settle, reporting the first failure. Writes
// that succeeded are not rolled back.
func (s *Store) Set(ctx context.Context, sid string, sess *Session) (err error) {
	bs, err := s.bound()
	if err != nil {
		return err
	}
	ctx, done := s.observer.StartOp(ctx, OpSet)
	defer func() { done(err) }()

	return s.write(ctx, bs, sid, sess)
}

// Touch refreshes a session's expiry. It rewrites the full value to every
// map exactly like Set.
func (s *Store) Touch(ctx context.Context, sid string, sess *Session) (err error) {
	bs, err := s.bound()
	if err != nil {
		return err
	}
	ctx, done := s.observer.StartOp(ctx, OpTouch)
	defer func() { done(err) }()

	return s.write(ctx, bs, sid, sess)
}

func (s *Store) write(ctx context.Context, bs []binding, sid string, sess *Session) error {
	ttl, ok := ComputeTTL(s.cfg, sess)
	if !ok {
		ttl = 0
	}

	var g errgroup.Group
	for _, b := range bs {
		g.Go(func() error {
			key, err := b.key(sid, sess)
			if err != nil {
				return fmt.Errorf("key for %s: %w", b.desc.Name, err)
			}
			value, err := b.value(sess)
			if err != nil {
				return fmt.Errorf("bean for %s: %w", b.desc.Name, err)
			}
			raw, err := s.cfg.Codec.Marshal(value)
			if err != nil {
				return ErrCodec.WithDetails("encode value for %s", b.desc.Name).WithCause(err)
			}
			if err := b.m.Set(ctx, key, raw, ttl); err != nil {
				return fmt.Errorf("set in %s: %w", b.desc.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("session write failed", "sid", sid, "error", err)
		return err
	}
	return nil
}

// Destroy removes sid from every map that is keyed by the session id.
//
// The primary value is read first. Maps with a Key function are skipped:
// their keys are derived from session contents and are left to expire.
func (s *Store) Destroy(ctx context.Context, sid string) (err error) {
	bs, err := s.bound()
	if err != nil {
		return err
	}
	ctx, done := s.observer.StartOp(ctx, OpDestroy)
	defer func() { done(err) }()

	if _, err := bs[0].m.Get(ctx, sid); err != nil {
		return fmt.Errorf("get from %s: %w", bs[0].desc.Name, err)
	}

	var g errgroup.Group
	for _, b := range bs {
		if b.desc.Key != nil {
			s.log.Debug("destroy skips keyed map", "map", b.desc.Name, "sid", sid)
			continue
		}
		g.Go(func() error {
			if err := b.m.Delete(ctx, sid); err != nil {
				return fmt.Errorf("delete from %s: %w", b.desc.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Clear empties every configured map concurrently.
func (s *Store) Clear(ctx context.Context) (err error) {
	bs, err := s.bound()
	if err != nil {
		return err
	}
	ctx, done := s.observer.StartOp(ctx, OpClear)
	defer func() { done(err) }()

	var g errgroup.Group
	for _, b := range bs {
		g.Go(func() error {
			if err := b.m.Clear(ctx); err != nil {
				return fmt.Errorf("clear %s: %w", b.desc.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Info("all session maps cleared", "maps", len(bs))
	return nil
}

// GetFromMap reads sid from the map at index and decodes it into dst. It
// reports false and no error when sid is absent.
func (s *Store) GetFromMap(ctx context.Context, sid string, index int, dst any) (found bool, err error) {
	bs, err := s.bound()
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(bs) {
		return false, ErrMapIndex.WithDetails("index %d, %d maps configured", index, len(bs))
	}
	ctx, done := s.observer.StartOp(ctx, OpGetFromMap)
	defer func() { done(err) }()

	return s.read(ctx, bs[index], sid, dst)
}

// GetBean reads the value stored for sid in the map at index as a T.
// It returns nil and no error when sid is absent.
func GetBean[T any](ctx context.Context, s *Store, sid string, index int) (*T, error) {
	v := new(T)
	found, err := s.GetFromMap(ctx, sid, index, v)
	if err != nil || !found {
		return nil, err
	}
	return v, nil
}

func (s *Store) read(ctx context.Context, b binding, key string, dst any) (bool, error) {
	raw, err := b.m.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get from %s: %w", b.desc.Name, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := s.cfg.Codec.Unmarshal(raw, dst); err != nil {
		return false, ErrCodec.WithDetails("decode value of %s", b.desc.Name).WithCause(err)
	}
	return true, nil
}

func (b binding) key(sid string, sess *Session) (string, error) {
	if b.desc.Key == nil || b.index == 0 {
		return sid, nil
	}
	return b.desc.Key(sid, sess)
}

func (b binding) value(sess *Session) (any, error) {
	if b.desc.Bean == nil {
		return sess, nil
	}
	return b.desc.Bean(sess)
}
