package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"

	gridv1 "github.com/yndnr/gridsession-go/api/grid/v1"
	"github.com/yndnr/gridsession-go/internal/grid/ring"
	"github.com/yndnr/gridsession-go/pkg/grid"
)

// DefaultRefreshInterval is how often membership is re-read.
const DefaultRefreshInterval = 10 * time.Second

// ErrNoMembers is returned when no node could report the membership.
var ErrNoMembers = errors.New("remote: no reachable grid members")

// Client routes map operations to grid nodes.
type Client struct {
	seeds      []string
	httpClient connect.HTTPClient
	connOpts   []connect.ClientOption
	logger     *slog.Logger
	refresh    time.Duration
	ring       *ring.Ring

	mu    sync.Mutex
	peers map[string]*peer
	err   error

	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

var (
	_ grid.AsyncClient = (*Client)(nil)
	_ grid.Client      = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(c connect.HTTPClient) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithRefreshInterval sets the membership refresh period. Zero disables
// periodic refresh after the first snapshot.
func WithRefreshInterval(d time.Duration) Option {
	return func(cl *Client) {
		cl.refresh = d
	}
}

// WithClientOptions adds Connect client options, e.g. interceptors.
func WithClientOptions(opts ...connect.ClientOption) Option {
	return func(cl *Client) {
		cl.connOpts = append(cl.connOpts, opts...)
	}
}

// New creates a client and starts membership discovery in the background.
// seeds are RPC addresses (host:port) of any grid nodes.
func New(seeds []string, opts ...Option) *Client {
	c := &Client{
		seeds:      append([]string(nil), seeds...),
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		refresh:    DefaultRefreshInterval,
		ring:       ring.New(0),
		peers:      make(map[string]*peer),
		ready:      make(chan struct{}),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "remotegrid")
	c.connOpts = append([]connect.ClientOption{connect.WithCodec(gridv1.JSONCodec{})}, c.connOpts...)

	go c.refreshLoop()
	return c
}

// Dial creates a client and waits for the first membership snapshot.
func Dial(ctx context.Context, seeds []string, opts ...Option) (*Client, error) {
	if len(seeds) == 0 {
		return nil, errors.New("remote: at least one seed is required")
	}
	c := New(seeds, opts...)
	if err := c.WaitReady(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// WaitReady blocks until membership is known, ctx is done or the client
// is closed.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.stopCh:
		return grid.ErrClosed
	case <-ctx.Done():
		c.mu.Lock()
		last := c.err
		c.mu.Unlock()
		if last != nil {
			return fmt.Errorf("%w: %w", ctx.Err(), last)
		}
		return ctx.Err()
	}
}

// GetMapAsync resolves a map handle once membership is known.
func (c *Client) GetMapAsync(ctx context.Context, name string) *grid.Future[grid.Map] {
	if err := grid.ValidateName(name); err != nil {
		return grid.Failed[grid.Map](err)
	}
	return grid.Go(func() (grid.Map, error) {
		if err := c.WaitReady(ctx); err != nil {
			return nil, err
		}
		return &Map{name: name, client: c}, nil
	})
}

// GetMap resolves a map handle, blocking until membership is known.
func (c *Client) GetMap(ctx context.Context, name string) (grid.Map, error) {
	return c.GetMapAsync(ctx, name).Await(ctx)
}

// Members returns the current ring members.
func (c *Client) Members() []ring.Node {
	return c.ring.Nodes()
}

// Refresh re-reads membership from a known member or a seed.
func (c *Client) Refresh(ctx context.Context) error {
	candidates := make([]string, 0, len(c.seeds)+c.ring.Len())
	for _, n := range c.ring.Nodes() {
		candidates = append(candidates, n.Addr)
	}
	candidates = append(candidates, c.seeds...)

	var errs []error
	for _, addr := range candidates {
		resp, err := c.peer(addr).members.CallUnary(ctx, connect.NewRequest(&gridv1.MembersRequest{}))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}
		if len(resp.Msg.Members) == 0 {
			errs = append(errs, fmt.Errorf("%s: empty membership", addr))
			continue
		}
		c.apply(resp.Msg.Members)
		return nil
	}

	err := fmt.Errorf("%w: %w", ErrNoMembers, errors.Join(errs...))
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	return err
}

func (c *Client) apply(members []gridv1.Member) {
	nodes := make([]ring.Node, len(members))
	for i, m := range members {
		nodes[i] = ring.Node{ID: m.ID, Addr: m.Addr}
	}
	before := c.ring.Version()
	c.ring.Set(nodes)

	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()

	c.readyOnce.Do(func() { close(c.ready) })
	if c.ring.Version() != before {
		c.logger.Debug("membership updated", "members", len(nodes))
	}
}

func (c *Client) refreshLoop() {
	defer close(c.doneCh)

	backoff := 100 * time.Millisecond
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.Refresh(ctx)
		cancel()

		wait := c.refresh
		if err != nil {
			c.logger.Warn("membership refresh failed", "error", err)
			select {
			case <-c.ready:
			default:
				// Retry quickly until the first snapshot arrives.
				wait = backoff
				backoff = min(backoff*2, 5*time.Second)
			}
		}
		if wait <= 0 {
			select {
			case <-c.ready:
				<-c.stopCh
				return
			default:
				wait = backoff
			}
		}

		select {
		case <-time.After(wait):
		case <-c.stopCh:
			return
		}
	}
}

// Close stops membership refresh. Pending GetMapAsync futures fail with
// grid.ErrClosed; later map operations fail with grid.ErrClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		<-c.doneCh
	})
	return nil
}

func (c *Client) closed() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// owner returns the peer for key.
func (c *Client) owner(key string) (*peer, error) {
	if c.closed() {
		return nil, grid.ErrClosed
	}
	n, ok := c.ring.Locate(key)
	if !ok {
		return nil, ErrNoMembers
	}
	return c.peer(n.Addr), nil
}

// all returns a peer for every member.
func (c *Client) all() ([]*peer, error) {
	if c.closed() {
		return nil, grid.ErrClosed
	}
	nodes := c.ring.Nodes()
	if len(nodes) == 0 {
		return nil, ErrNoMembers
	}
	peers := make([]*peer, len(nodes))
	for i, n := range nodes {
		peers[i] = c.peer(n.Addr)
	}
	return peers, nil
}

func (c *Client) peer(addr string) *peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.peers[addr]
	if !ok {
		p = newPeer(c.httpClient, "http://"+addr, c.connOpts...)
		c.peers[addr] = p
	}
	return p
}
