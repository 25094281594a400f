// Package binding resolves the handler entry points from a shared library
// named at configuration time.
//
// Bind opens lib<name>.so (lib<name>.dylib on darwin) with purego, so the
// bridge needs neither cgo nor the handler library at link time. Every name
// in Symbols must resolve before any function slot is populated; a single
// missing symbol fails the whole binding and no Table is returned.
//
// Binding happens once during startup. A Table is read-only afterwards and
// safe for concurrent use, but calls into the library block the calling
// goroutine for as long as the library takes to return.
package binding
