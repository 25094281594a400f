package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/debug"
	"github.com/rhuss/jsonhandler/pkg/dispatch"
	"github.com/rhuss/jsonhandler/pkg/document"
	"github.com/rhuss/jsonhandler/pkg/envelope"
	"github.com/rhuss/jsonhandler/pkg/exchange"
	"github.com/rhuss/jsonhandler/pkg/journal"
	"github.com/rhuss/jsonhandler/pkg/observability"
	"github.com/rhuss/jsonhandler/pkg/transport"
)

// Engine bridges forwarded exchanges to the external handler and back.
type Engine struct {
	registry   *transport.InFlightRegistry
	dispatcher dispatch.Dispatcher
	lib        document.Library
	journal    journal.Journal
	cfg        Config
}

var (
	_ transport.Forwarder = (*Engine)(nil)
	_ transport.Relayer   = (*Engine)(nil)
)

// New creates an Engine. The dispatcher and document library must not be
// nil. The journal can be nil.
func New(d dispatch.Dispatcher, lib document.Library, j journal.Journal, cfg Config) (*Engine, error) {
	if d == nil {
		return nil, fmt.Errorf("engine: dispatcher must not be nil")
	}
	if lib == nil {
		return nil, fmt.Errorf("engine: document library must not be nil")
	}
	return &Engine{
		registry:   transport.NewInFlightRegistry(),
		dispatcher: d,
		lib:        lib,
		journal:    j,
		cfg:        cfg.withDefaults(),
	}, nil
}

// Pending returns the number of suspended exchanges.
func (e *Engine) Pending() int {
	return e.registry.Len()
}

// ExchangeIDHeader carries the journal ID of a forwarded exchange back to
// the client. It is set before dispatch, so error responses carry it too.
const ExchangeIDHeader = "X-Exchange-ID"

// Forward dispatches ex and writes the relayed response to w. It returns
// an error, without writing a status or body, when dispatch fails, the
// timeout fires, or ctx is cancelled.
func (e *Engine) Forward(ctx context.Context, ex *exchange.Exchange, w http.ResponseWriter) error {
	requestID := transport.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = transport.NewRequestID()
	}
	// Clients choose request IDs, so the journal keys on its own.
	id := uuid.NewString()
	w.Header().Set(ExchangeIDHeader, id)

	p := transport.NewPending(requestID)
	h := e.registry.Register(p)
	defer e.registry.Remove(h)
	observability.PendingExchanges.Inc()
	defer observability.PendingExchanges.Dec()

	if ex.Body == nil {
		ex.Body = exchange.NewBody(nil)
	}
	if ex.Body.Spooled() {
		observability.SpooledBodiesTotal.Inc()
	}

	data, err := envelope.Encode(e.lib, envelope.Build(ex, h))
	if err != nil {
		err = api.NewServerError(fmt.Sprintf("encoding envelope: %v", err))
		release(p, err)
		return err
	}
	debug.Log("dispatch", "submitting envelope", "request_id", requestID, "handle", h, "bytes", len(data))
	debug.Raw("dispatch", string(data))

	entry := &journal.Entry{
		ID:          id,
		RequestID:   requestID,
		Handle:      int64(h),
		Method:      ex.Method,
		URI:         ex.URI,
		Backend:     e.cfg.Backend,
		State:       journal.StateDispatched,
		RequestSize: ex.Body.Size(),
	}

	start := time.Now()
	code, err := e.dispatcher.Submit(ctx, data)
	observability.DispatchLatency.WithLabelValues(e.cfg.Backend).Observe(time.Since(start).Seconds())
	if err != nil || code != 0 {
		observability.DispatchTotal.WithLabelValues(e.cfg.Backend, dispatchResult(err)).Inc()
		if err == nil {
			err = &api.HandlerRejectedError{Code: code}
		} else {
			err = fmt.Errorf("dispatching exchange: %w", err)
		}
		// The handler may have answered before Submit returned.
		release(p, err)
		entry.DispatchCode = code
		journal.Completion{State: journal.StateRejected, Status: http.StatusInternalServerError}.Apply(entry, time.Now())
		e.record(ctx, entry)
		slog.Warn("handler rejected exchange", "request_id", requestID, "handle", h, "code", code, "error", err)
		return err
	}
	observability.DispatchTotal.WithLabelValues(e.cfg.Backend, observability.DispatchAccepted).Inc()
	e.record(ctx, entry)

	timer := time.NewTimer(e.cfg.Timeout)
	defer timer.Stop()

	var d *transport.Delivery
	select {
	case d = <-p.Delivered():
	case <-ctx.Done():
		if p.Abandon() {
			debug.Log("relay", "exchange abandoned", "request_id", requestID, "handle", h)
			e.complete(ctx, id, journal.Completion{State: journal.StateAbandoned})
			return ctx.Err()
		}
		d = <-p.Delivered()
	case <-timer.C:
		if p.Abandon() {
			slog.Warn("no response received", "request_id", requestID, "handle", h, "timeout", e.cfg.Timeout)
			e.complete(ctx, id, journal.Completion{State: journal.StateTimeout, Status: http.StatusGatewayTimeout})
			return api.NewTimeoutError(fmt.Sprintf("no response received within %s", e.cfg.Timeout))
		}
		d = <-p.Delivered()
	}
	observability.ResponseWait.Observe(time.Since(start).Seconds())
	defer p.Complete()

	if d.Err != nil {
		d.Finish(nil)
		e.complete(ctx, id, journal.Completion{State: journal.StateRelayFailed, Status: http.StatusInternalServerError})
		return d.Err
	}

	n, werr := writeDelivery(w, d)
	d.Finish(werr)
	if werr != nil {
		slog.Error("writing relayed response", "request_id", requestID, "handle", h, "error", werr)
		e.complete(ctx, id, journal.Completion{State: journal.StateRelayFailed, Status: http.StatusOK, ResponseSize: n})
		return nil
	}
	e.complete(ctx, id, journal.Completion{State: journal.StateRelayed, Status: http.StatusOK, ResponseSize: n})
	return nil
}

// writeDelivery writes the relayed headers, status 200, Content-Length and
// body. The delivery body is released afterwards.
func writeDelivery(w http.ResponseWriter, d *transport.Delivery) (int64, error) {
	defer d.Body.Close()

	src, err := d.Body.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	hdr := w.Header()
	for _, f := range d.Header {
		hdr.Add(f.Name, f.Value)
	}
	hdr.Set("Content-Length", strconv.FormatInt(d.Body.Size(), 10))
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, src)
	if err != nil {
		return n, fmt.Errorf("%w: %v", api.ErrBodyAccess, err)
	}
	return n, nil
}

// release stops p from waiting. A delivery that already won is failed
// with err and its body removed, so the relay answers instead of
// blocking on an exchange that will never write it.
func release(p *transport.Pending, err error) {
	if p.Abandon() {
		return
	}
	d := <-p.Delivered()
	d.Body.Close()
	d.Finish(err)
	p.Complete()
}

func dispatchResult(err error) string {
	if err != nil {
		return observability.DispatchError
	}
	return observability.DispatchRejected
}

func (e *Engine) record(ctx context.Context, entry *journal.Entry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("journal record failed", "exchange_id", entry.ID, "request_id", entry.RequestID, "error", err)
	}
}

func (e *Engine) complete(ctx context.Context, id string, c journal.Completion) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Complete(context.WithoutCancel(ctx), id, c); err != nil {
		slog.Warn("journal completion failed", "exchange_id", id, "state", c.State, "error", err)
	}
}
