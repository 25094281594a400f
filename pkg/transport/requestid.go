package transport

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rhuss/jsonhandler/pkg/exchange"
)

// RequestID returns middleware that makes sure every exchange carries a
// request ID. An ID already in the context (set by the HTTP adapter from
// X-Request-ID) is kept; otherwise a new UUID is assigned.
func RequestID() Middleware {
	return func(next Forwarder) Forwarder {
		return ForwarderFunc(func(ctx context.Context, ex *exchange.Exchange, w http.ResponseWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.Forward(ctx, ex, w)
		})
	}
}

type requestIDKey struct{}

// ContextWithRequestID returns ctx carrying id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// NewRequestID returns a fresh random request ID.
func NewRequestID() string {
	return uuid.NewString()
}
