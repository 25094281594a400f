package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/exchange"
)

// Recovery returns middleware that turns a panic in the forwarder into a
// server error. The server keeps accepting exchanges afterwards.
func Recovery() Middleware {
	return func(next Forwarder) Forwarder {
		return ForwarderFunc(func(ctx context.Context, ex *exchange.Exchange, w http.ResponseWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("forwarder panic", "request_id", RequestIDFromContext(ctx), "panic", r)
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.Forward(ctx, ex, w)
		})
	}
}

// RecoverRelay turns a panic in the relayer into a 500 outcome, so the
// response channel is still answered.
func RecoverRelay() RelayMiddleware {
	return func(next Relayer) Relayer {
		return RelayerFunc(func(ctx context.Context, ex *exchange.Exchange) (out Outcome) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("relayer panic", "request_id", RequestIDFromContext(ctx), "panic", r)
					out = Outcome{
						Status: http.StatusInternalServerError,
						Err:    api.NewServerError(fmt.Sprintf("internal server error: %v", r)),
					}
				}
			}()
			return next.Relay(ctx, ex)
		})
	}
}
