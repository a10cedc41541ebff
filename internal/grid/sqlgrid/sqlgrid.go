package sqlgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yndnr/gridsession-go/pkg/grid"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config configures a Client.
type Config struct {
	Driver string
	DSN    string

	// SweepInterval is the period of expired-row deletion. Zero disables it.
	SweepInterval time.Duration
}

// Client is a grid.Client over a gorm database.
type Client struct {
	db     *gorm.DB
	logger *slog.Logger
	clock  func() time.Time

	mu     sync.Mutex
	maps   map[string]*Map
	closed atomic.Bool

	sweepInterval time.Duration
	closeOnce     sync.Once
	stopCh        chan struct{}
	doneCh        chan struct{}
}

var _ grid.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithClock sets the time source used for expiry.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// Open connects to the database, migrates grid_entries and starts the
// sweeper.
func Open(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sqlgrid", "driver", cfg.Driver)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("sqlgrid: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("sqlgrid: open: %w", err)
	}
	return New(db, cfg.SweepInterval, logger, opts...)
}

// New wraps an open gorm database.
func New(db *gorm.DB, sweepInterval time.Duration, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if db.Dialector.Name() == DriverSQLite {
		// SQLite allows one writer; serialize through one connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlgrid: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("sqlgrid: migrate: %w", err)
	}

	c := &Client{
		db:            db,
		logger:        logger,
		clock:         time.Now,
		maps:          make(map[string]*Map),
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sweepInterval > 0 {
		go c.sweepLoop()
	} else {
		close(c.doneCh)
	}
	return c, nil
}

// GetMap returns a handle for the named map. Maps exist implicitly.
func (c *Client) GetMap(ctx context.Context, name string) (grid.Map, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	if err := grid.ValidateName(name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.maps[name]
	if !ok {
		m = &Map{name: name, client: c}
		c.maps[name] = m
	}
	return m, nil
}

// Sweep deletes expired rows of every map and returns how many were removed.
func (c *Client) Sweep(ctx context.Context) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	res := c.db.WithContext(ctx).
		Where("expires_at > 0 AND expires_at <= ?", c.now()).
		Delete(&entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("sqlgrid: sweep: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (c *Client) sweepLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.sweepInterval)
			n, err := c.Sweep(ctx)
			cancel()
			if err != nil && !errors.Is(err, grid.ErrClosed) {
				c.logger.Error("sweep failed", "error", err)
			} else if n > 0 {
				c.logger.Debug("swept expired entries", "count", n)
			}
		case <-c.stopCh:
			return
		}
	}
}

// Close stops the sweeper and closes the connection pool.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopCh)
		<-c.doneCh

		sqlDB, derr := c.db.DB()
		if derr != nil {
			err = derr
			return
		}
		err = sqlDB.Close()
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

func (c *Client) now() int64 {
	return c.clock().UnixMilli()
}
