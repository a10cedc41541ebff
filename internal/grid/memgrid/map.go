package memgrid

import (
	"context"
	"time"

	"github.com/yndnr/gridsession-go/pkg/cmap"
	"github.com/yndnr/gridsession-go/pkg/grid"
)

// Map is one named map of a Client.
type Map struct {
	name   string
	client *Client
	data   *cmap.Map[[]byte]
}

var _ grid.Map = (*Map)(nil)

func (m *Map) Name() string { return m.name }

func (m *Map) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.client.check(ctx, "get", m.name); err != nil {
		return nil, err
	}
	v, ok := m.data.Get(key)
	if !ok {
		return nil, nil
	}
	return clone(v), nil
}

func (m *Map) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.client.check(ctx, "set", m.name); err != nil {
		return err
	}
	m.data.SetWithTTL(key, clone(value), ttl)
	return nil
}

func (m *Map) Delete(ctx context.Context, key string) error {
	if err := m.client.check(ctx, "delete", m.name); err != nil {
		return err
	}
	m.data.Delete(key)
	return nil
}

func (m *Map) Clear(ctx context.Context) error {
	if err := m.client.check(ctx, "clear", m.name); err != nil {
		return err
	}
	m.data.Clear()
	return nil
}

func (m *Map) Size(ctx context.Context) (int, error) {
	if err := m.client.check(ctx, "size", m.name); err != nil {
		return 0, err
	}
	return m.data.Count(), nil
}

func (m *Map) Values(ctx context.Context) ([][]byte, error) {
	if err := m.client.check(ctx, "values", m.name); err != nil {
		return nil, err
	}
	values := m.data.Values()
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = clone(v)
	}
	return out, nil
}

// TTL returns the remaining lifetime of key; see cmap.Map.TTL.
func (m *Map) TTL(key string) (time.Duration, bool) {
	return m.data.TTL(key)
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
