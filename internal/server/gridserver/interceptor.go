package gridserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"

	"github.com/yndnr/gridsession-go/internal/telemetry/metric"
)

// ErrRateLimited is returned when the rate limiter rejects a request.
var ErrRateLimited = errors.New("gridserver: rate limit exceeded")

// LoggingInterceptor logs every RPC at debug level and failures at warn.
type LoggingInterceptor struct {
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor.
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingInterceptor{logger: logger}
}

// WrapUnary implements connect.Interceptor.
func (i *LoggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		duration := time.Since(start)

		if err != nil {
			i.logger.Warn("grid rpc error",
				"method", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"code", connect.CodeOf(err).String(),
				"duration_ms", duration.Milliseconds(),
				"error", err)
		} else {
			i.logger.Debug("grid rpc",
				"method", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"duration_ms", duration.Milliseconds())
		}
		return resp, err
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *LoggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *LoggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// RecoveryInterceptor turns handler panics into internal errors.
type RecoveryInterceptor struct {
	logger *slog.Logger
}

// NewRecoveryInterceptor creates a new recovery interceptor.
func NewRecoveryInterceptor(logger *slog.Logger) *RecoveryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryInterceptor{logger: logger}
}

// WrapUnary implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
		defer func() {
			if r := recover(); r != nil {
				i.logger.Error("grid rpc panic recovered",
					"method", req.Spec().Procedure,
					"panic", r)
				err = connect.NewError(connect.CodeInternal,
					fmt.Errorf("internal server error: panic recovered"))
			}
		}()
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// RateLimitInterceptor rejects requests above a token-bucket rate with
// CodeResourceExhausted.
type RateLimitInterceptor struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimitInterceptor allows rps requests per second with the given
// burst.
func NewRateLimitInterceptor(rps float64, burst int, logger *slog.Logger) *RateLimitInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitInterceptor{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// WrapUnary implements connect.Interceptor.
func (i *RateLimitInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if !i.limiter.Allow() {
			i.logger.Debug("grid rpc rate limited", "method", req.Spec().Procedure, "peer", req.Peer().Addr)
			return nil, connect.NewError(connect.CodeResourceExhausted, ErrRateLimited)
		}
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *RateLimitInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *RateLimitInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// NewMetricsInterceptor records request counts and latency in reg.
func NewMetricsInterceptor(reg *metric.Registry) connect.Interceptor {
	return connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			procedure := req.Spec().Procedure
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			reg.GridRequests.WithLabelValues(procedure, code).Inc()
			reg.GridRequestDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	})
}

// DefaultInterceptors returns the interceptor chain of a node. The rate
// limiter is omitted when rps is zero.
func DefaultInterceptors(logger *slog.Logger, reg *metric.Registry, rps float64, burst int) []connect.Interceptor {
	chain := []connect.Interceptor{NewRecoveryInterceptor(logger)}
	if reg != nil {
		chain = append(chain, NewMetricsInterceptor(reg))
	}
	chain = append(chain, NewLoggingInterceptor(logger))
	if rps > 0 {
		chain = append(chain, NewRateLimitInterceptor(rps, burst, logger))
	}
	return chain
}
