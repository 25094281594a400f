// Package api defines the wire types exchanged between the bridge and
// external handlers, and the error taxonomy shared by all packages.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O.
//
// Core types:
//   - [Envelope]: Structured description of a forwarded exchange (meta, headers, data)
//   - [Meta]: Request line metadata plus the correlation handle
//   - [Data]: Body representation, exactly one of utf8, hex or file is set
//   - [APIError]: Structured error body written to HTTP clients
//
// Errors:
//
// Failures are classified by sentinel errors ([ErrLibraryNotFound],
// [ErrSymbolMissing], [ErrMalformedHandle], [ErrTargetNotLive],
// [ErrAllocation], [ErrHandlerRejected], [ErrBodyAccess]). Typed errors
// such as [SymbolMissingError] and [HandlerRejectedError] carry details and
// unwrap to their sentinel, so callers classify with errors.Is.
package api
