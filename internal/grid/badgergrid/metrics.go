package badgergrid

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterMetrics registers database size and GC metrics with reg.
//
// This should be called once during initialization.
// Returns the client for method chaining.
func (c *Client) RegisterMetrics(reg prometheus.Registerer) *Client {
	opts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: "gridsession",
			Subsystem: "badger",
			Name:      name,
			Help:      help,
		}
	}

	reg.MustRegister(
		prometheus.NewGaugeFunc(opts("lsm_size_bytes", "Badger LSM tree size in bytes"), func() float64 {
			lsm, _ := c.db.Size()
			return float64(lsm)
		}),
		prometheus.NewGaugeFunc(opts("value_log_size_bytes", "Badger value log size in bytes"), func() float64 {
			_, vlog := c.db.Size()
			return float64(vlog)
		}),
		prometheus.NewGaugeFunc(opts("last_gc_timestamp_seconds", "Unix timestamp of the last value log GC"), func() float64 {
			return float64(c.lastGC.Load())
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "gridsession",
			Subsystem: "badger",
			Name:      "gc_rewrites_total",
			Help:      "Value log files rewritten by GC",
		}, func() float64 {
			return float64(c.gcRuns.Load())
		}),
	)
	return c
}
