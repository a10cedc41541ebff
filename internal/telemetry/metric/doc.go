// Package metric provides Prometheus metrics for gridsession.
//
//   - registry.go: the metric set, its registry and the /metrics handler
//   - observer.go: a sessionstore.Observer feeding the store metrics
//
// Metrics are exposed at /metrics in Prometheus format by the demo host and
// by gridnode's metrics listener.
package metric
