// Package tracer provides OpenTelemetry tracing for gridsession.
//
//   - otel.go: provider construction and installation as the global provider
//   - observer.go: spans around session store operations
//   - export.go: a span exporter that writes finished spans to the logger
//
// Components create spans through the global otel API, so tracing costs
// nothing until a Provider is installed.
package tracer
