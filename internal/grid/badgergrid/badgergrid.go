package badgergrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/gridsession-go/pkg/grid"
)

// Config configures a Client.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps the database in memory only.
	InMemory bool

	// GCInterval is the period of value log GC. Zero disables it.
	GCInterval time.Duration

	// GCThreshold is the discard ratio passed to RunValueLogGC.
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// SyncWrites fsyncs after every write.
	SyncWrites bool
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		CacheSize:   64 << 20,
	}
}

// Client is a grid.Client over one Badger database.
type Client struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	maps   map[string]*Map
	closed atomic.Bool

	lastGC    atomic.Int64
	gcRuns    atomic.Uint64
	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

var _ grid.Client = (*Client)(nil)

// Open opens the database and starts the GC loop.
func Open(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, errors.New("badgergrid: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "badgergrid")

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithLogger(&badgerLogger{logger: logger}).
		WithSyncWrites(cfg.SyncWrites)
	if cfg.InMemory {
		opts.Dir, opts.ValueDir = "", ""
	}
	if cfg.CacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.CacheSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgergrid: open db: %w", err)
	}

	c := &Client{
		db:     db,
		cfg:    cfg,
		logger: logger,
		maps:   make(map[string]*Map),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		go c.gcLoop()
	} else {
		close(c.doneCh)
	}

	logger.Info("badger engine started", "dir", cfg.Dir, "in_memory", cfg.InMemory, "gc_interval", cfg.GCInterval)
	return c, nil
}

// GetMap returns a handle for the named map. Maps exist implicitly.
func (c *Client) GetMap(ctx context.Context, name string) (grid.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := grid.ValidateName(name); err != nil {
		return nil, err
	}
	if strings.IndexByte(name, 0) >= 0 {
		return nil, fmt.Errorf("badgergrid: map name %q contains a NUL byte", name)
	}
	if c.closed.Load() {
		return nil, grid.ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.maps[name]
	if !ok {
		m = &Map{name: name, prefix: mapPrefix(name), client: c}
		c.maps[name] = m
	}
	return m, nil
}

// GC runs value log GC until Badger reports nothing left to rewrite and
// returns the number of rewrites.
func (c *Client) GC() (int, error) {
	if c.closed.Load() {
		return 0, grid.ErrClosed
	}
	if c.cfg.InMemory {
		return 0, nil
	}
	start := time.Now()
	runs := 0
	for {
		err := c.db.RunValueLogGC(c.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return runs, fmt.Errorf("badgergrid: gc: %w", err)
		}
		runs++
	}

	c.lastGC.Store(time.Now().Unix())
	c.gcRuns.Add(uint64(runs))
	c.logger.Debug("value log gc completed", "rewrites", runs, "elapsed", time.Since(start))
	return runs, nil
}

func (c *Client) gcLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := c.GC(); err != nil {
				c.logger.Error("auto gc failed", "error", err)
			}
		case <-c.stopCh:
			return
		}
	}
}

// Close stops the GC loop and closes the database.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopCh)
		<-c.doneCh
		if cerr := c.db.Close(); cerr != nil {
			err = fmt.Errorf("badgergrid: close db: %w", cerr)
		}
		c.logger.Info("badger engine shutdown complete")
	})
	return err
}

func (c *Client) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return grid.ErrClosed
	}
	return nil
}

func mapPrefix(name string) []byte {
	return append([]byte(name), 0)
}

// ceilSeconds rounds ttl up to Badger's expiry resolution.
func ceilSeconds(ttl time.Duration) time.Duration {
	if r := ttl % time.Second; r != 0 {
		ttl += time.Second - r
	}
	return ttl
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
