package sessionstore

import "context"

// Op names a store operation for observers.
type Op string

const (
	OpAttach     Op = "attach"
	OpGet        Op = "get"
	OpAll        Op = "all"
	OpLength     Op = "length"
	OpSet        Op = "set"
	OpTouch      Op = "touch"
	OpDestroy    Op = "destroy"
	OpClear      Op = "clear"
	OpGetFromMap Op = "get_from_map"
)

// Observer is notified around every store operation that passes the
// initialization check. The returned function is called exactly once with
// the operation's result.
type Observer interface {
	StartOp(ctx context.Context, op Op) (context.Context, func(err error))
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, op Op) (context.Context, func(err error))

func (f ObserverFunc) StartOp(ctx context.Context, op Op) (context.Context, func(err error)) {
	return f(ctx, op)
}

// Observers fans out to several observers. Completion callbacks run in
// reverse order so that nested spans close inside out.
type Observers []Observer

func (os Observers) StartOp(ctx context.Context, op Op) (context.Context, func(err error)) {
	dones := make([]func(error), 0, len(os))
	for _, o := range os {
		if o == nil {
			continue
		}
		var done func(error)
		ctx, done = o.StartOp(ctx, op)
		dones = append(dones, done)
	}
	return ctx, func(err error) {
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i](err)
		}
	}
}

type nopObserver struct{}

func (nopObserver) StartOp(ctx context.Context, _ Op) (context.Context, func(error)) {
	return ctx, func(error) {}
}
