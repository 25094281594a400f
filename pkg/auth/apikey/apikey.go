// Package apikey authenticates callers by static API keys, passed either
// as a bearer token or in the X-API-Key header. Keys are held as SHA-256
// hashes and compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rhuss/jsonhandler/pkg/auth"
)

// HeaderName is the alternative to the Authorization header.
const HeaderName = "X-API-Key"

// RawKeyEntry is the configuration format for API keys.
type RawKeyEntry struct {
	Key      string
	Identity auth.Identity
}

type keyEntry struct {
	hash     [32]byte
	identity auth.Identity
}

// Authenticator validates API keys against a static key store.
type Authenticator struct {
	keys []keyEntry
}

// New creates an API key authenticator. Keys are hashed immediately;
// plaintext keys are not stored.
func New(entries []RawKeyEntry) *Authenticator {
	a := &Authenticator{keys: make([]keyEntry, 0, len(entries))}
	for _, e := range entries {
		a.keys = append(a.keys, keyEntry{
			hash:     sha256.Sum256([]byte(e.Key)),
			identity: e.Identity,
		})
	}
	return a
}

// Authenticate returns Yes for a known key, No for an unknown or empty
// one, and Abstain when the request carries no key at all.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	key, ok := credential(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if key == "" {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	sum := sha256.Sum256([]byte(key))
	for _, entry := range a.keys {
		if subtle.ConstantTimeCompare(sum[:], entry.hash[:]) == 1 {
			id := entry.identity
			return auth.Result{Decision: auth.Yes, Identity: &id}
		}
	}
	return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
}

// credential extracts the key. X-API-Key wins over a bearer token.
func credential(r *http.Request) (string, bool) {
	if vals, ok := r.Header[HeaderName]; ok && len(vals) > 0 {
		return strings.TrimSpace(vals[0]), true
	}
	return auth.BearerToken(r)
}
