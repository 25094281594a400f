// Package exchange captures an inbound HTTP request as an Exchange: the
// request line, an ordered header multimap, and a body that is held in
// memory or spooled to a temporary file once it grows past a limit.
//
// Exchanges are read-only snapshots. The Body owns its temporary file and
// removes it on Close, so the owner of an Exchange must close it when the
// exchange is finalized.
package exchange
