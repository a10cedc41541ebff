package tracer

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used by gridsession components.
const InstrumentationName = "github.com/yndnr/gridsession-go"

// Config configures tracing.
type Config struct {
	// Enabled installs a provider. When false the global no-op provider stays.
	Enabled bool `koanf:"enabled"`
	// SampleRatio is the fraction of new traces recorded, in [0, 1].
	SampleRatio float64 `koanf:"sample_ratio"`
	// LogSpans writes finished spans to the logger at debug level.
	LogSpans bool `koanf:"log_spans"`
}

// DefaultConfig returns tracing disabled with full sampling once enabled.
func DefaultConfig() Config {
	return Config{SampleRatio: 1}
}

// Provider manages the OpenTelemetry tracer provider.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New creates a provider. Extra options, such as span processors, are
// appended after those derived from cfg.
func New(cfg Config, log *slog.Logger, opts ...sdktrace.TracerProviderOption) *Provider {
	ratio := cfg.SampleRatio
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	base := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}
	if cfg.LogSpans && log != nil {
		base = append(base, sdktrace.WithBatcher(NewLogExporter(log)))
	}

	return &Provider{tp: sdktrace.NewTracerProvider(append(base, opts...)...)}
}

// Install makes p the global tracer provider.
func (p *Provider) Install() {
	otel.SetTracerProvider(p.tp)
}

// Tracer returns a tracer from this provider.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(InstrumentationName)
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

// Start starts a span on the global provider.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}
