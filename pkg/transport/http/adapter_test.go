package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/dispatch"
	"github.com/rhuss/jsonhandler/pkg/document"
	"github.com/rhuss/jsonhandler/pkg/engine"
	"github.com/rhuss/jsonhandler/pkg/exchange"
	"github.com/rhuss/jsonhandler/pkg/journal"
	"github.com/rhuss/jsonhandler/pkg/journal/memory"
	"github.com/rhuss/jsonhandler/pkg/transport"
)

// recordingForwarder writes a fixed answer and keeps the last exchange.
type recordingForwarder struct {
	mu  sync.Mutex
	got *exchange.Exchange
	ctx context.Context
	err error
}

func (f *recordingForwarder) Forward(ctx context.Context, ex *exchange.Exchange, w http.ResponseWriter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = ex
	f.ctx = ctx
	if f.err != nil {
		return f.err
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "forwarded")
	return nil
}

var okRelayer = transport.RelayerFunc(func(context.Context, *exchange.Exchange) transport.Outcome {
	return transport.Outcome{Status: http.StatusOK}
})

func newTestAdapter(t *testing.T, fwd transport.Forwarder, relayer transport.Relayer, j journal.Journal) *Adapter {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ForwardRoutes = []string{"/hello", "/api/"}
	a, err := NewAdapter(fwd, relayer, j, cfg)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return a
}

func decodeError(t *testing.T, resp *http.Response) *api.APIError {
	t.Helper()
	var body api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body.Error == nil {
		t.Fatal("error body has no error")
	}
	return body.Error
}

func TestNewAdapterValidatesRoutes(t *testing.T) {
	fwd := &recordingForwarder{}
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no forward routes", Config{ResponseRoute: "/response"}},
		{"relative route", Config{ForwardRoutes: []string{"hello"}}},
		{"duplicate route", Config{ForwardRoutes: []string{"/a", "/a"}}},
		{"forward on response route", Config{ResponseRoute: "/r", ForwardRoutes: []string{"/r"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAdapter(fwd, okRelayer, nil, tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := NewAdapter(nil, okRelayer, nil, Config{ForwardRoutes: []string{"/a"}}); err == nil {
		t.Error("expected error for nil forwarder")
	}
}

func TestForwardRouteCapturesExchange(t *testing.T) {
	fwd := &recordingForwarder{}
	srv := httptest.NewServer(newTestAdapter(t, fwd, okRelayer, nil).Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/items?x=1", strings.NewReader("payload"))
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Add("X-Multi", "a")
	req.Header.Add("X-Multi", "b")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "forwarded" {
		t.Errorf("body = %q", body)
	}

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	ex := fwd.got
	if ex.Method != http.MethodPut || ex.URI != "/api/items" || ex.Args != "x=1" {
		t.Errorf("exchange = %s %s ? %s", ex.Method, ex.URI, ex.Args)
	}
	if ex.UnparsedURI != "/api/items?x=1" {
		t.Errorf("UnparsedURI = %q", ex.UnparsedURI)
	}
	if ex.Protocol != "HTTP/1.1" {
		t.Errorf("Protocol = %q", ex.Protocol)
	}
	if got := transport.RequestIDFromContext(fwd.ctx); got != "req-42" {
		t.Errorf("context request ID = %q", got)
	}
	var multi []string
	for _, f := range ex.Header {
		if f.Name == "X-Multi" {
			multi = append(multi, f.Value)
		}
	}
	if len(multi) != 2 || multi[0] != "a" || multi[1] != "b" {
		t.Errorf("X-Multi = %v, want [a b]", multi)
	}
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	srv := httptest.NewServer(newTestAdapter(t, &recordingForwarder{}, okRelayer, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/hello")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a generated X-Request-ID")
	}
}

func TestForwardErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"handler rejected", &api.HandlerRejectedError{Code: 2}, http.StatusInternalServerError, "handler_rejected"},
		{"timeout", api.NewTimeoutError("no response"), http.StatusGatewayTimeout, ""},
		{"allocation", api.ErrAllocation, http.StatusInternalServerError, "allocation_failure"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(newTestAdapter(t, &recordingForwarder{err: tt.err}, okRelayer, nil).Handler())
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/hello", "text/plain", strings.NewReader("x"))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if apiErr := decodeError(t, resp); apiErr.Code != tt.code {
				t.Errorf("code = %q, want %q", apiErr.Code, tt.code)
			}
		})
	}
}

func TestOversizedBodyReturns413(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForwardRoutes = []string{"/hello"}
	cfg.MaxBodySize = 8
	a, err := NewAdapter(&recordingForwarder{}, okRelayer, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/hello", "text/plain", strings.NewReader(strings.Repeat("x", 64)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestUnknownPathReturns404(t *testing.T) {
	srv := httptest.NewServer(newTestAdapter(t, &recordingForwarder{}, okRelayer, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/elsewhere")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestResponseRouteAnswers(t *testing.T) {
	tests := []struct {
		name    string
		outcome transport.Outcome
		status  int
		code    string
	}{
		{"relayed", transport.Outcome{Status: http.StatusOK}, http.StatusOK, ""},
		{"malformed", transport.Outcome{Status: http.StatusBadRequest, Err: api.ErrMalformedHandle}, http.StatusBadRequest, "malformed_handle"},
		{"not live", transport.Outcome{Status: http.StatusBadRequest, Err: api.ErrTargetNotLive}, http.StatusBadRequest, "target_not_live"},
		{"failed", transport.Outcome{Status: http.StatusInternalServerError, Err: api.ErrBodyAccess}, http.StatusInternalServerError, "body_access"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relayer := transport.RelayerFunc(func(context.Context, *exchange.Exchange) transport.Outcome { return tt.outcome })
			srv := httptest.NewServer(newTestAdapter(t, &recordingForwarder{}, relayer, nil).Handler())
			defer srv.Close()

			resp, err := http.Post(srv.URL+DefaultResponseRoute, "application/json", strings.NewReader("{}"))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.code == "" {
				body, _ := io.ReadAll(resp.Body)
				if len(body) != 0 {
					t.Errorf("body = %q, want empty", body)
				}
				return
			}
			if apiErr := decodeError(t, resp); apiErr.Code != tt.code {
				t.Errorf("code = %q, want %q", apiErr.Code, tt.code)
			}
		})
	}
}

func TestProtectWrapsResponseAndLookup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForwardRoutes = []string{"/hello"}
	cfg.Protect = func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	a, err := NewAdapter(&recordingForwarder{}, okRelayer, memory.New(10), cfg)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	for _, path := range []string{"/response", "/v1/exchanges/abc"} {
		method := http.MethodPost
		if strings.HasPrefix(path, "/v1/") {
			method = http.MethodGet
		}
		req, _ := http.NewRequest(method, srv.URL+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/hello")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("forward route status = %d, want 200", resp.StatusCode)
	}
}

func TestGetExchangeWithoutJournalReturns501(t *testing.T) {
	srv := httptest.NewServer(newTestAdapter(t, &recordingForwarder{}, okRelayer, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/exchanges/abc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}

func TestGetExchange(t *testing.T) {
	j := memory.New(10)
	j.Record(context.Background(), &journal.Entry{ID: "req-1", Method: "GET", URI: "/hello", State: journal.StateDispatched})
	srv := httptest.NewServer(newTestAdapter(t, &recordingForwarder{}, okRelayer, j).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/exchanges/req-1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got journal.Entry
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "req-1" || got.State != journal.StateDispatched {
		t.Errorf("entry = %+v", got)
	}

	resp2, err := http.Get(srv.URL + "/v1/exchanges/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", resp2.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := httptest.NewServer(newTestAdapter(t, &recordingForwarder{}, okRelayer, memory.New(10)).Handler())
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

// TestEndToEndEcho runs the full bridge: the echo backend posts every
// envelope back through the response channel.
func TestEndToEndEcho(t *testing.T) {
	var echo *dispatch.Echo
	d := dispatch.Func(func(ctx context.Context, env []byte) (int, error) {
		return echo.Submit(ctx, env)
	})
	lib, err := document.Bind("")
	if err != nil {
		t.Fatal(err)
	}
	j := memory.New(10)
	eng, err := engine.New(d, lib, j, engine.Config{Timeout: 5 * time.Second, Backend: dispatch.BackendEcho})
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.ForwardRoutes = []string{"/test"}
	a, err := NewAdapter(eng, eng, j, cfg, transport.Recovery(), transport.RequestID())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()
	echo = dispatch.NewEcho(srv.URL+DefaultResponseRoute, "", 5*time.Second)
	defer echo.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/test?foo=bar", strings.NewReader("hello"))
	req.Header.Set("X-Request-ID", "e2e-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := document.Lookup(body, "data.utf8").String(); got != "hello" {
		t.Errorf("data.utf8 = %q, want hello", got)
	}
	if got := document.Lookup(body, "meta.args").String(); got != "foo=bar" {
		t.Errorf("meta.args = %q, want foo=bar", got)
	}
	if got := document.Lookup(body, "meta.method").String(); got != "POST" {
		t.Errorf("meta.method = %q, want POST", got)
	}

	echo.Wait()
	deadline := time.Now().Add(2 * time.Second)
	for {
		entry, err := j.Get(context.Background(), resp.Header.Get(engine.ExchangeIDHeader))
		if err == nil && entry.State == journal.StateRelayed {
			if entry.Status != http.StatusOK || entry.RequestID != "e2e-1" {
				t.Errorf("entry = %+v", entry)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("journal entry not relayed: %+v, %v", entry, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestResponseRoutePanicAnswers500(t *testing.T) {
	panicky := transport.RelayerFunc(func(context.Context, *exchange.Exchange) transport.Outcome {
		panic("relay exploded")
	})
	srv := httptest.NewServer(newTestAdapter(t, &recordingForwarder{}, panicky, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+DefaultResponseRoute, "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("response channel connection dropped: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if e := decodeError(t, resp); e.Type != api.ErrorTypeServerError || !strings.Contains(e.Message, "relay exploded") {
		t.Errorf("error = %+v", e)
	}
}

func TestRelayMiddlewareIsApplied(t *testing.T) {
	var seen []string
	mw := func(next transport.Relayer) transport.Relayer {
		return transport.RelayerFunc(func(ctx context.Context, ex *exchange.Exchange) transport.Outcome {
			seen = append(seen, ex.URI)
			return next.Relay(ctx, ex)
		})
	}
	cfg := DefaultConfig()
	cfg.ForwardRoutes = []string{"/hello"}
	cfg.RelayMiddleware = []transport.RelayMiddleware{mw}
	a, err := NewAdapter(&recordingForwarder{}, okRelayer, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+DefaultResponseRoute, "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(seen) != 1 || seen[0] != DefaultResponseRoute {
		t.Errorf("status = %d, middleware saw %v", resp.StatusCode, seen)
	}
}
