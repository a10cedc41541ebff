package metric

import (
	"context"
	"time"

	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// StoreObserver returns an observer that counts store operations and
// records their latency.
func (r *Registry) StoreObserver() sessionstore.Observer {
	return sessionstore.ObserverFunc(func(ctx context.Context, op sessionstore.Op) (context.Context, func(error)) {
		start := time.Now()
		return ctx, func(err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			r.StoreOps.WithLabelValues(string(op), result).Inc()
			r.StoreOpDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
		}
	})
}
