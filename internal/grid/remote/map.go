package remote

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/sync/errgroup"

	gridv1 "github.com/yndnr/gridsession-go/api/grid/v1"
	"github.com/yndnr/gridsession-go/pkg/grid"
)

// Map is a handle to one map spread over the cluster.
type Map struct {
	name   string
	client *Client
}

var _ grid.Map = (*Map)(nil)

func (m *Map) Name() string { return m.name }

func (m *Map) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := m.client.owner(key)
	if err != nil {
		return nil, err
	}
	resp, err := p.get.CallUnary(ctx, connect.NewRequest(&gridv1.KeyRequest{Map: m.name, Key: key}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	if !resp.Msg.Found {
		return nil, nil
	}
	if resp.Msg.Value == nil {
		return []byte{}, nil
	}
	return resp.Msg.Value, nil
}

func (m *Map) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	p, err := m.client.owner(key)
	if err != nil {
		return err
	}
	req := &gridv1.SetRequest{Map: m.name, Key: key, Value: value}
	if ttl > 0 {
		req.TTLMillis = max(ttl.Milliseconds(), 1)
	}
	_, err = p.set.CallUnary(ctx, connect.NewRequest(req))
	return fromConnectError(err)
}

func (m *Map) Delete(ctx context.Context, key string) error {
	p, err := m.client.owner(key)
	if err != nil {
		return err
	}
	_, err = p.del.CallUnary(ctx, connect.NewRequest(&gridv1.KeyRequest{Map: m.name, Key: key}))
	return fromConnectError(err)
}

func (m *Map) Clear(ctx context.Context) error {
	peers, err := m.client.all()
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range peers {
		g.Go(func() error {
			_, err := p.clear.CallUnary(gctx, connect.NewRequest(&gridv1.MapRequest{Map: m.name}))
			return fromConnectError(err)
		})
	}
	return g.Wait()
}

func (m *Map) Size(ctx context.Context) (int, error) {
	peers, err := m.client.all()
	if err != nil {
		return 0, err
	}
	sizes := make([]int64, len(peers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range peers {
		g.Go(func() error {
			resp, err := p.size.CallUnary(gctx, connect.NewRequest(&gridv1.MapRequest{Map: m.name}))
			if err != nil {
				return fromConnectError(err)
			}
			sizes[i] = resp.Msg.Size
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	var total int64
	for _, n := range sizes {
		total += n
	}
	return int(total), nil
}

func (m *Map) Values(ctx context.Context) ([][]byte, error) {
	peers, err := m.client.all()
	if err != nil {
		return nil, err
	}
	parts := make([][][]byte, len(peers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range peers {
		g.Go(func() error {
			resp, err := p.values.CallUnary(gctx, connect.NewRequest(&gridv1.MapRequest{Map: m.name}))
			if err != nil {
				return fromConnectError(err)
			}
			parts[i] = resp.Msg.Values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out [][]byte
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}

// fromConnectError maps Connect codes back to grid errors.
func fromConnectError(err error) error {
	if err == nil {
		return nil
	}
	switch connect.CodeOf(err) {
	case connect.CodeNotFound:
		return fmt.Errorf("%w: %w", grid.ErrMapNotFound, err)
	case connect.CodeInvalidArgument:
		return fmt.Errorf("%w: %w", grid.ErrInvalidName, err)
	case connect.CodeUnavailable:
		return fmt.Errorf("%w: %w", grid.ErrClosed, err)
	}
	return err
}
