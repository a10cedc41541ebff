package memgrid

import (
	"context"
	"time"

	"github.com/yndnr/gridsession-go/pkg/grid"
)

// AsyncClient presents a Client through the future-returning generation of
// the grid API, optionally delaying every resolution.
type AsyncClient struct {
	c     *Client
	delay time.Duration
}

var _ grid.AsyncClient = (*AsyncClient)(nil)

// Async returns an AsyncClient view of c.
func (c *Client) Async(delay time.Duration) *AsyncClient {
	return &AsyncClient{c: c, delay: delay}
}

// GetMapAsync resolves the named map in the background.
func (a *AsyncClient) GetMapAsync(ctx context.Context, name string) *grid.Future[grid.Map] {
	return grid.Go(func() (grid.Map, error) {
		if a.delay > 0 {
			t := time.NewTimer(a.delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		return a.c.GetMap(ctx, name)
	})
}
