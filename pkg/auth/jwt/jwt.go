// Package jwt authenticates response-channel callers by RS256/384/512
// bearer tokens verified against a JWKS endpoint.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rhuss/jsonhandler/pkg/auth"
	"github.com/rhuss/jsonhandler/pkg/debug"
)

// Config configures an Authenticator. Empty Issuer or Audience skips the
// corresponding check.
type Config struct {
	Issuer   string
	Audience string
	JWKSURL  string

	// UserClaim becomes Identity.Subject. Default "sub".
	UserClaim string

	// ScopesClaim holds the granted scopes, either space separated or a
	// list. Default "scope".
	ScopesClaim string

	// MetadataClaims are string claims copied into Identity.Metadata.
	MetadataClaims []string

	// CacheTTL is how long fetched keys are trusted. Default 1h.
	CacheTTL time.Duration

	HTTPClient *http.Client
}

// Authenticator verifies bearer JWTs.
type Authenticator struct {
	cfg    Config
	keys   *keySet
	parser *jwtlib.Parser
}

// New returns an Authenticator for cfg.
func New(cfg Config) *Authenticator {
	if cfg.UserClaim == "" {
		cfg.UserClaim = "sub"
	}
	if cfg.ScopesClaim == "" {
		cfg.ScopesClaim = "scope"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods([]string{"RS256", "RS384", "RS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}

	return &Authenticator{
		cfg:    cfg,
		keys:   newKeySet(cfg.JWKSURL, cfg.CacheTTL, cfg.HTTPClient),
		parser: jwtlib.NewParser(opts...),
	}
}

// Authenticate abstains without a bearer token and votes No for any token
// that fails verification or lacks the subject claim.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if raw == "" {
		return auth.Result{Decision: auth.No, Err: errors.New("empty bearer token")}
	}

	claims := jwtlib.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return a.keys.key(ctx, kid)
	})
	if err != nil {
		debug.Log("auth", "rejected token", "error", err)
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("invalid JWT: %w", err)}
	}

	id, err := a.identity(claims)
	if err != nil {
		return auth.Result{Decision: auth.No, Err: err}
	}
	return auth.Result{Decision: auth.Yes, Identity: id}
}

func (a *Authenticator) identity(claims jwtlib.MapClaims) (*auth.Identity, error) {
	subject, _ := claims[a.cfg.UserClaim].(string)
	if subject == "" {
		return nil, fmt.Errorf("JWT missing %q claim", a.cfg.UserClaim)
	}

	id := &auth.Identity{
		Subject:  subject,
		Scopes:   scopes(claims[a.cfg.ScopesClaim]),
		Metadata: map[string]string{},
	}
	if iss, _ := claims["iss"].(string); iss != "" {
		id.Metadata["issuer"] = iss
	}
	for _, name := range a.cfg.MetadataClaims {
		if v, _ := claims[name].(string); v != "" {
			id.Metadata[name] = v
		}
	}
	return id, nil
}

// scopes accepts "a b c" or ["a", "b", "c"].
func scopes(v any) []string {
	var out []string
	switch s := v.(type) {
	case string:
		out = strings.Fields(s)
	case []any:
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
