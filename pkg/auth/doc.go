// Package auth authenticates callers of the response channel and the
// exchange lookup.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// Auth is plain HTTP middleware installed per route, so forwarded
// exchanges never pass through it.
package auth
