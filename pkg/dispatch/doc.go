// Package dispatch hands serialized envelopes to the external handler.
//
// A Dispatcher returns the handler's exit code: zero means the envelope was
// accepted and a response will arrive later on the response channel. The
// backend is chosen by name:
//
//   - library: calls submit_json_request in a shared object bound through
//     pkg/binding.
//   - http: POSTs the envelope to a handler service.
//   - nats: publishes the envelope on a NATS subject.
//   - echo: answers every envelope itself by posting it back to the
//     response channel.
package dispatch
