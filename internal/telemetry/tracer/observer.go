package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// StoreObserver wraps every store operation in a span named
// "sessionstore.<op>". A nil tracer uses the global provider at call time.
func StoreObserver(t trace.Tracer) sessionstore.Observer {
	return sessionstore.ObserverFunc(func(ctx context.Context, op sessionstore.Op) (context.Context, func(error)) {
		tr := t
		if tr == nil {
			tr = otel.Tracer(InstrumentationName)
		}
		ctx, span := tr.Start(ctx, "sessionstore."+string(op),
			trace.WithAttributes(attribute.String("sessionstore.op", string(op))))
		return ctx, func(err error) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}
	})
}
