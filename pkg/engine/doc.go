// Package engine correlates forwarded exchanges with the responses relayed
// back by the external handler.
//
// The Engine implements transport.Forwarder and transport.Relayer. Forward
// registers the exchange under a fresh handle, serializes it into an
// envelope, dispatches it and keeps the exchange suspended until Relay
// delivers the matching response, the client goes away, or the timeout
// fires. Optional capabilities (the journal) use nil-safe composition.
package engine
