// Package transport defines the handler contracts, the pending-exchange
// registry and the middleware chain that sit between the HTTP adapter and
// the correlation engine.
//
// # Handler Interfaces
//
//   - Forwarder handles an exchange arriving on a forwarding location. It
//     dispatches the exchange and keeps it suspended until a response is
//     relayed to it.
//   - Relayer handles an exchange arriving on the response channel. It
//     resolves the correlation handle and moves the response onto the
//     suspended exchange.
//
// # Pending Exchanges
//
// InFlightRegistry maps handles to Pending entries. A Pending is a one-shot
// state machine: exactly one of delivery or abandonment wins, so every
// suspended exchange is finalized on a single path.
//
// # Middleware
//
// The middleware chain wraps Forwarder with panic recovery, request ID
// assignment (X-Request-ID) and structured logging via log/slog.
package transport
