package sessionstore

import (
	"context"
	"errors"
)

// Callbacks exposes a SessionStore through completion callbacks, for hosts
// whose session middleware is callback driven.
//
// Each method starts the operation in its own goroutine and returns a
// channel that receives the result exactly once. The callback, when not nil,
// runs before the result is delivered. Precondition failures (no client
// attached, store not constructed) are reported synchronously: the callback
// has already run and the channel is already filled when the method returns.
type Callbacks struct {
	store SessionStore
	ctx   context.Context
}

// NewCallbacks wraps store. Operations run under ctx.
func NewCallbacks(ctx context.Context, store SessionStore) *Callbacks {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Callbacks{store: store, ctx: ctx}
}

// precondition reports ErrNotConstructed or ErrNotInitialized for stores
// that expose the check, without starting any work.
func (c *Callbacks) precondition() error {
	if c == nil || c.store == nil {
		return ErrNotConstructed
	}
	if s, ok := c.store.(*Store); ok {
		_, err := s.bound()
		return err
	}
	return nil
}

func (c *Callbacks) run(op func() error) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- op()
	}()
	return ch
}

// Get loads a session and passes it to fn. A missing session yields a nil
// session and a nil error.
func (c *Callbacks) Get(sid string, fn func(error, *Session)) <-chan error {
	if err := c.precondition(); err != nil {
		return settleNow(err, func() { call2(fn, err, (*Session)(nil)) })
	}
	return c.run(func() error {
		sess, err := c.store.Get(c.ctx, sid)
		call2(fn, err, sess)
		return err
	})
}

// Set stores a session.
func (c *Callbacks) Set(sid string, sess *Session, fn func(error)) <-chan error {
	return c.simple(fn, func() error { return c.store.Set(c.ctx, sid, sess) })
}

// Touch refreshes a session.
func (c *Callbacks) Touch(sid string, sess *Session, fn func(error)) <-chan error {
	return c.simple(fn, func() error { return c.store.Touch(c.ctx, sid, sess) })
}

// Destroy removes a session.
func (c *Callbacks) Destroy(sid string, fn func(error)) <-chan error {
	return c.simple(fn, func() error { return c.store.Destroy(c.ctx, sid) })
}

// Clear removes every session.
func (c *Callbacks) Clear(fn func(error)) <-chan error {
	return c.simple(fn, func() error { return c.store.Clear(c.ctx) })
}

// All lists every session.
func (c *Callbacks) All(fn func(error, []*Session)) <-chan error {
	if err := c.precondition(); err != nil {
		return settleNow(err, func() { call2(fn, err, []*Session(nil)) })
	}
	return c.run(func() error {
		all, err := c.store.All(c.ctx)
		call2(fn, err, all)
		return err
	})
}

// Length counts sessions.
func (c *Callbacks) Length(fn func(error, int)) <-chan error {
	if err := c.precondition(); err != nil {
		return settleNow(err, func() { call2(fn, err, 0) })
	}
	return c.run(func() error {
		n, err := c.store.Length(c.ctx)
		call2(fn, err, n)
		return err
	})
}

func (c *Callbacks) simple(fn func(error), op func() error) <-chan error {
	if err := c.precondition(); err != nil {
		return settleNow(err, func() {
			if fn != nil {
				fn(err)
			}
		})
	}
	return c.run(func() error {
		err := op()
		if fn != nil {
			fn(err)
		}
		return err
	})
}

func settleNow(err error, notify func()) <-chan error {
	notify()
	ch := make(chan error, 1)
	ch <- err
	return ch
}

func call2[T any](fn func(error, T), err error, v T) {
	if fn != nil {
		fn(err, v)
	}
}

// IsPrecondition reports whether err is a synchronous precondition failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNotInitialized) || errors.Is(err, ErrNotConstructed)
}
