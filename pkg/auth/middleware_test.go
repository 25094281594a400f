package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/jsonhandler/pkg/api"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	var seen *Identity
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/response", nil))
	return rec, seen
}

func TestMiddlewareRejectsUnauthenticated(t *testing.T) {
	rec, seen := serve(t, Middleware(&Chain{Fallback: No}, ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if seen != nil {
		t.Error("handler must not run")
	}
	var body api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Type != api.ErrorTypeUnauthorized {
		t.Errorf("type = %q, want %q", body.Error.Type, api.ErrorTypeUnauthorized)
	}
}

func TestMiddlewareInjectsIdentity(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{yesAlice}, Fallback: No}
	rec, seen := serve(t, Middleware(chain, ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.Subject != "alice" {
		t.Errorf("identity = %v, want alice", seen)
	}
}

func TestMiddlewareRequiredScope(t *testing.T) {
	scoped := vote{Decision: Yes, Identity: &Identity{Subject: "handler", Scopes: []string{"relay"}}}

	rec, _ := serve(t, Middleware(&Chain{Authenticators: []Authenticator{yesAlice}}, "relay"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("without scope: status = %d, want 403", rec.Code)
	}

	rec, seen := serve(t, Middleware(&Chain{Authenticators: []Authenticator{scoped}}, "relay"))
	if rec.Code != http.StatusOK {
		t.Errorf("with scope: status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.Subject != "handler" {
		t.Errorf("identity = %v, want handler", seen)
	}
}

func TestMiddlewareEmptySubject(t *testing.T) {
	blank := vote{Decision: Yes, Identity: &Identity{}}
	rec, _ := serve(t, Middleware(&Chain{Authenticators: []Authenticator{blank}}, ""))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
