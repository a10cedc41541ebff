package grid

import (
	"context"
	"fmt"
)

// Resolver is the normalized map-resolution call.
type Resolver interface {
	Resolve(ctx context.Context, name string) *Future[Map]
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, name string) *Future[Map]

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, name string) *Future[Map] {
	return f(ctx, name)
}

// SyncResolver wraps a Client. Each GetMap runs in its own goroutine, so
// resolutions of several names overlap just as they do for an AsyncClient.
func SyncResolver(c Client) Resolver {
	return ResolverFunc(func(ctx context.Context, name string) *Future[Map] {
		if c == nil {
			return Failed[Map](ErrUnsupportedClient)
		}
		return Go(func() (Map, error) {
			m, err := c.GetMap(ctx, name)
			if err != nil {
				return nil, err
			}
			if m == nil {
				return nil, fmt.Errorf("%w: %s", ErrMapNotFound, name)
			}
			return m, nil
		})
	})
}

// AsyncResolver wraps an AsyncClient.
func AsyncResolver(c AsyncClient) Resolver {
	return ResolverFunc(func(ctx context.Context, name string) *Future[Map] {
		if c == nil {
			return Failed[Map](ErrUnsupportedClient)
		}
		f := c.GetMapAsync(ctx, name)
		if f == nil {
			return Failed[Map](fmt.Errorf("%w: %s", ErrMapNotFound, name))
		}
		return f
	})
}

// ResolverFor picks the resolver matching the generation of c.
// AsyncClient takes precedence when c implements both.
func ResolverFor(c any) (Resolver, error) {
	switch v := c.(type) {
	case AsyncClient:
		return AsyncResolver(v), nil
	case Client:
		return SyncResolver(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedClient, c)
	}
}

// ResolveAll requests every name concurrently and waits for all of them.
//
// The returned slice is index-aligned with names. If any resolution fails,
// ResolveAll returns nil and the first error in name order.
func ResolveAll(ctx context.Context, r Resolver, names []string) ([]Map, error) {
	futures := make([]*Future[Map], len(names))
	for i, name := range names {
		futures[i] = r.Resolve(ctx, name)
	}

	maps := make([]Map, len(names))
	for i, f := range futures {
		m, err := f.Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve map %q: %w", names[i], err)
		}
		if m == nil {
			return nil, fmt.Errorf("resolve map %q: %w", names[i], ErrMapNotFound)
		}
		maps[i] = m
	}
	return maps, nil
}
