package memgrid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yndnr/gridsession-go/pkg/cmap"
	"github.com/yndnr/gridsession-go/pkg/grid"
)

// DefaultSweepInterval is how often expired entries are reclaimed.
const DefaultSweepInterval = time.Minute

// FaultFunc is consulted before every map operation; a non-nil result is
// returned to the caller instead of performing the operation.
type FaultFunc func(op, mapName string) error

// Client is an in-process grid.Client.
type Client struct {
	mu     sync.Mutex
	maps   map[string]*Map
	closed bool

	clock  cmap.Clock
	shards int
	fault  FaultFunc
	known  map[string]struct{}

	sweepInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the time source for expiry.
func WithClock(c func() time.Time) Option {
	return func(cl *Client) {
		cl.clock = c
	}
}

// WithSweepInterval sets the sweeper period. Zero disables the sweeper.
func WithSweepInterval(d time.Duration) Option {
	return func(cl *Client) {
		cl.sweepInterval = d
	}
}

// WithShardCount sets the shard count of every map.
func WithShardCount(n int) Option {
	return func(cl *Client) {
		cl.shards = n
	}
}

// WithFault installs a fault hook.
func WithFault(f FaultFunc) Option {
	return func(cl *Client) {
		cl.fault = f
	}
}

// WithKnownMaps restricts GetMap to the given names. Others fail with
// grid.ErrMapNotFound.
func WithKnownMaps(names ...string) Option {
	return func(cl *Client) {
		cl.known = make(map[string]struct{}, len(names))
		for _, n := range names {
			cl.known[n] = struct{}{}
		}
	}
}

// New creates a client and starts its sweeper.
func New(opts ...Option) *Client {
	c := &Client{
		maps:          make(map[string]*Map),
		clock:         time.Now,
		shards:        cmap.DefaultShardCount,
		sweepInterval: DefaultSweepInterval,
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
	return c
}

// GetMap returns the named map, creating it on first use.
func (c *Client) GetMap(ctx context.Context, name string) (grid.Map, error) {
	m, err := c.getMap(ctx, name)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) getMap(ctx context.Context, name string) (*Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := grid.ValidateName(name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, grid.ErrClosed
	}
	if c.known != nil {
		if _, ok := c.known[name]; !ok {
			return nil, fmt.Errorf("%w: %s", grid.ErrMapNotFound, name)
		}
	}
	m, ok := c.maps[name]
	if !ok {
		m = &Map{
			name:   name,
			client: c,
			data:   cmap.New[[]byte](cmap.WithShardCount(c.shards), cmap.WithClock(c.clock)),
		}
		c.maps[name] = m
	}
	return m, nil
}

// MapNames lists the maps created so far.
func (c *Client) MapNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.maps))
	for n := range c.maps {
		names = append(names, n)
	}
	return names
}

// Sweep reclaims expired entries in every map now.
func (c *Client) Sweep() int {
	c.mu.Lock()
	maps := make([]*Map, 0, len(c.maps))
	for _, m := range c.maps {
		maps = append(maps, m)
	}
	c.mu.Unlock()

	removed := 0
	for _, m := range maps {
		removed += m.data.Sweep()
	}
	return removed
}

func (c *Client) sweepLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Close stops the sweeper. Subsequent operations fail with grid.ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stopCh)
	<-c.doneCh
	return nil
}

func (c *Client) check(ctx context.Context, op, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed, fault := c.closed, c.fault
	c.mu.Unlock()

	if closed {
		return grid.ErrClosed
	}
	if fault != nil {
		return fault(op, name)
	}
	return nil
}

// SetFault replaces the fault hook of a running client.
func (c *Client) SetFault(f FaultFunc) {
	c.mu.Lock()
	c.fault = f
	c.mu.Unlock()
}
