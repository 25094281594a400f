package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/exchange"
	"github.com/rhuss/jsonhandler/pkg/journal"
	"github.com/rhuss/jsonhandler/pkg/observability"
	"github.com/rhuss/jsonhandler/pkg/transport"
)

// DefaultResponseRoute is the response channel location.
const DefaultResponseRoute = "/response"

// Adapter exposes the bridge over HTTP. Requests to a forward route are
// suspended and handed to the Forwarder; requests to the response route
// are handed to the Relayer.
type Adapter struct {
	forwarder transport.Forwarder
	relayer   transport.Relayer
	journal   journal.Journal // nil if no journal is configured
	mux       *http.ServeMux
	config    Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// ForwardRoutes are the ServeMux paths whose requests are forwarded to
	// the external handler. A trailing slash matches the whole subtree.
	ForwardRoutes []string

	// ResponseRoute is the path of the response channel.
	ResponseRoute string

	// MaxBodySize caps request bodies on every route. Zero disables the cap.
	MaxBodySize int64

	// Spool controls in-memory buffering of request bodies.
	Spool exchange.SpoolOptions

	// Protect wraps the response channel and the exchange lookup, usually
	// with authentication. Nil leaves them open.
	Protect func(http.Handler) http.Handler

	// RelayMiddleware wraps the Relayer, first outermost. Panic recovery
	// is always applied around it.
	RelayMiddleware []transport.RelayMiddleware
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		ResponseRoute: DefaultResponseRoute,
		MaxBodySize:   10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter. The journal is optional; without it
// the exchange lookup answers 501. Middleware is applied to the Forwarder
// in the given order.
func NewAdapter(fwd transport.Forwarder, relayer transport.Relayer, j journal.Journal, cfg Config, middlewares ...transport.Middleware) (*Adapter, error) {
	if fwd == nil || relayer == nil {
		return nil, errors.New("forwarder and relayer are required")
	}
	if cfg.ResponseRoute == "" {
		cfg.ResponseRoute = DefaultResponseRoute
	}
	if len(cfg.ForwardRoutes) == 0 {
		return nil, errors.New("at least one forward route is required")
	}
	if len(middlewares) > 0 {
		fwd = transport.Chain(middlewares...)(fwd)
	}
	// Recovery is always outermost on the relay path.
	relayer = transport.ChainRelay(append([]transport.RelayMiddleware{transport.RecoverRelay()}, cfg.RelayMiddleware...)...)(relayer)

	a := &Adapter{
		forwarder: fwd,
		relayer:   relayer,
		journal:   j,
		mux:       http.NewServeMux(),
		config:    cfg,
	}

	protect := cfg.Protect
	if protect == nil {
		protect = func(h http.Handler) http.Handler { return h }
	}

	seen := map[string]bool{}
	for _, route := range append([]string{cfg.ResponseRoute}, cfg.ForwardRoutes...) {
		if !strings.HasPrefix(route, "/") {
			return nil, fmt.Errorf("route %q must start with /", route)
		}
		if seen[route] {
			return nil, fmt.Errorf("route %q is configured twice", route)
		}
		seen[route] = true
	}

	if err := a.handle(cfg.ResponseRoute, protect(http.HandlerFunc(a.handleResponse))); err != nil {
		return nil, err
	}
	for _, route := range cfg.ForwardRoutes {
		if err := a.handle(route, http.HandlerFunc(a.handleForward)); err != nil {
			return nil, err
		}
	}
	if err := a.handle("GET /v1/exchanges/{id}", protect(http.HandlerFunc(a.handleGetExchange))); err != nil {
		return nil, err
	}
	a.mux.HandleFunc("GET /healthz", handleHealth)
	a.mux.HandleFunc("GET /readyz", a.handleReady)

	return a, nil
}

// handle registers pattern, reporting ServeMux conflicts as errors.
func (a *Adapter) handle(pattern string, h http.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("registering route %q: %v", pattern, r)
		}
	}()
	a.mux.Handle(pattern, h)
	return nil
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// request ID propagation and request metrics.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(observability.MetricsMiddleware(a.mux))
}

// httpRequestIDMiddleware propagates the X-Request-ID header into the
// context and echoes the effective request ID on the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// readExchange captures r, answering 413 or 500 itself when the body
// cannot be read.
func (a *Adapter) readExchange(w http.ResponseWriter, r *http.Request) (*exchange.Exchange, bool) {
	if a.config.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	}
	ex, err := exchange.Read(r, a.config.Spool)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return nil, false
		}
		transport.WriteAPIError(w, api.FromError(err))
		return nil, false
	}
	return ex, true
}

// handleForward suspends the request until the external handler answers
// through the response channel.
func (a *Adapter) handleForward(w http.ResponseWriter, r *http.Request) {
	ex, ok := a.readExchange(w, r)
	if !ok {
		return
	}
	defer ex.Close()

	if err := a.forwarder.Forward(r.Context(), ex, w); err != nil {
		// The client is gone; there is nobody to answer.
		if r.Context().Err() != nil {
			return
		}
		transport.WriteAPIError(w, api.FromError(err))
	}
}

// handleResponse relays the request's prefixed headers and body to the
// exchange named by the correlation header.
func (a *Adapter) handleResponse(w http.ResponseWriter, r *http.Request) {
	ex, ok := a.readExchange(w, r)
	if !ok {
		return
	}
	defer ex.Close()

	out := a.relayer.Relay(r.Context(), ex)
	if out.OK() {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(out.Status)
		return
	}
	transport.WriteErrorResponse(w, api.FromError(out.Err), out.Status)
}

// handleGetExchange handles GET /v1/exchanges/{id}.
func (a *Adapter) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	if a.journal == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "exchange lookup is not available (no journal configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	id := r.PathValue("id")
	entry, err := a.journal.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("exchange "+id+" not found"))
			return
		}
		transport.WriteAPIError(w, api.NewServerError(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// handleReady reports whether the journal backend is reachable.
func (a *Adapter) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.journal != nil {
		if err := a.journal.HealthCheck(r.Context()); err != nil {
			transport.WriteErrorResponse(w, api.NewServerError("journal unavailable: "+err.Error()), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}
