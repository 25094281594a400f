package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/jsonhandler/pkg/exchange"
)

// Logging returns middleware that logs each forwarded exchange with its
// request ID, method, URI, body size and duration.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Forwarder) Forwarder {
		return ForwarderFunc(func(ctx context.Context, ex *exchange.Exchange, w http.ResponseWriter) error {
			start := time.Now()

			err := next.Forward(ctx, ex, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("method", ex.Method),
				slog.String("uri", ex.URI),
				slog.Duration("duration", time.Since(start)),
			}
			if ex.Body != nil {
				attrs = append(attrs, slog.Int64("body_size", ex.Body.Size()), slog.Bool("spooled", ex.Body.Spooled()))
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "exchange failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "exchange completed", attrs...)
			}
			return err
		})
	}
}

// LogRelay logs each response-channel exchange with its handle, status
// and duration.
func LogRelay(logger *slog.Logger) RelayMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Relayer) Relayer {
		return RelayerFunc(func(ctx context.Context, ex *exchange.Exchange) Outcome {
			start := time.Now()
			out := next.Relay(ctx, ex)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("handle", out.Handle.String()),
				slog.Int("status", out.Status),
				slog.Duration("duration", time.Since(start)),
			}
			if ex.Body != nil {
				attrs = append(attrs, slog.Int64("body_size", ex.Body.Size()))
			}
			if out.Err != nil {
				attrs = append(attrs, slog.String("error", out.Err.Error()))
				logger.LogAttrs(ctx, slog.LevelWarn, "relay failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "relay completed", attrs...)
			}
			return out
		})
	}
}
