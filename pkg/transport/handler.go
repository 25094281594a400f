package transport

import (
	"context"
	"net/http"

	"github.com/rhuss/jsonhandler/pkg/exchange"
	"github.com/rhuss/jsonhandler/pkg/handle"
)

// Forwarder handles an exchange on a forwarding location. The
// implementation writes the final response to w. An error is returned only
// when nothing has been written yet, leaving the error response to the
// caller.
type Forwarder interface {
	Forward(ctx context.Context, ex *exchange.Exchange, w http.ResponseWriter) error
}

// ForwarderFunc is an adapter that allows using an ordinary function
// as a Forwarder.
type ForwarderFunc func(ctx context.Context, ex *exchange.Exchange, w http.ResponseWriter) error

// Forward calls f(ctx, ex, w).
func (f ForwarderFunc) Forward(ctx context.Context, ex *exchange.Exchange, w http.ResponseWriter) error {
	return f(ctx, ex, w)
}

// Relayer handles an exchange on the response channel.
type Relayer interface {
	Relay(ctx context.Context, ex *exchange.Exchange) Outcome
}

// RelayerFunc is an adapter that allows using an ordinary function
// as a Relayer.
type RelayerFunc func(ctx context.Context, ex *exchange.Exchange) Outcome

// Relay calls f(ctx, ex).
func (f RelayerFunc) Relay(ctx context.Context, ex *exchange.Exchange) Outcome {
	return f(ctx, ex)
}

// Outcome is the terminal state of a response-channel exchange.
type Outcome struct {
	// Handle is the resolved target, zero when resolution failed.
	Handle handle.Handle
	// Status is the HTTP status answered on the response channel.
	Status int
	// Err is set when the relay was rejected or failed.
	Err error
}

// OK reports whether the response reached its target.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Status == http.StatusOK
}
