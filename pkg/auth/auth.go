package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
)

// Decision is the vote an Authenticator casts for a request.
type Decision int

const (
	// Yes accepts the credentials. The chain stops.
	Yes Decision = iota
	// No rejects the credentials. The chain stops.
	No
	// Abstain passes the request on to the next authenticator.
	Abstain
)

func (d Decision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Abstain:
		return "abstain"
	}
	return "unknown"
}

// Result is the outcome of one authentication attempt. Identity is set
// for Yes, Err for No.
type Result struct {
	Decision Decision
	Identity *Identity
	Err      error
}

// Identity is an authenticated caller, usually the external handler
// posting responses back.
type Identity struct {
	Subject  string
	Scopes   []string
	Metadata map[string]string
}

// HasScope reports whether the identity was granted scope.
func (id *Identity) HasScope(scope string) bool {
	return id != nil && slices.Contains(id.Scopes, scope)
}

// Authenticator votes on the credentials of a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
)

// Chain asks each authenticator in turn until one votes Yes or No.
// Fallback decides when every authenticator abstains.
type Chain struct {
	Authenticators []Authenticator
	Fallback       Decision
}

// Authenticate runs the chain.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.Authenticators {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.Fallback == Yes {
		return Result{Decision: Yes, Identity: &Identity{Subject: "anonymous"}}
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}

// BearerToken returns the token of an "Authorization: Bearer" header. ok
// is false when the header is absent or uses another scheme.
func BearerToken(r *http.Request) (token string, ok bool) {
	token, ok = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return strings.TrimSpace(token), ok
}

type identityKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by NewContext, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// Subject returns the subject of the identity in ctx, or "" when the
// request was not authenticated.
func Subject(ctx context.Context) string {
	if id := FromContext(ctx); id != nil {
		return id.Subject
	}
	return ""
}
