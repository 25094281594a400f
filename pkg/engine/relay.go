package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/auth"
	"github.com/rhuss/jsonhandler/pkg/debug"
	"github.com/rhuss/jsonhandler/pkg/exchange"
	"github.com/rhuss/jsonhandler/pkg/handle"
	"github.com/rhuss/jsonhandler/pkg/observability"
	"github.com/rhuss/jsonhandler/pkg/transport"
)

// Relay moves the response carried by ex onto the suspended exchange named
// by the correlation header. Nothing is written to any suspended exchange
// when the handle is missing, malformed or not live.
func (e *Engine) Relay(ctx context.Context, ex *exchange.Exchange) transport.Outcome {
	raw, ok := ex.Header.Get(e.cfg.CorrelationHeader)
	if !ok {
		return e.reject(0, fmt.Errorf("%w: %s header missing", api.ErrMalformedHandle, e.cfg.CorrelationHeader), observability.RelayMalformed)
	}
	h, err := handle.Parse(raw)
	if err != nil {
		return e.reject(0, err, observability.RelayMalformed)
	}

	p, ok := e.registry.Claim(h)
	if !ok {
		return e.reject(h, fmt.Errorf("%w: handle %s", api.ErrTargetNotLive, h), observability.RelayNotLive)
	}

	header, err := e.relayHeaders(ex.Header)
	if err == nil && e.cfg.MaxRelayBodySize > 0 && ex.Body != nil && ex.Body.Size() > e.cfg.MaxRelayBodySize {
		err = fmt.Errorf("%w: body of %d bytes exceeds %d", api.ErrAllocation, ex.Body.Size(), e.cfg.MaxRelayBodySize)
	}
	if err != nil {
		d := transport.NewDelivery(nil, exchange.NewBody(nil))
		d.Err = err
		if derr := p.Deliver(d); derr != nil {
			return e.reject(h, fmt.Errorf("%w: handle %s", derr, h), observability.RelayNotLive)
		}
		<-d.Done()
		observability.RelayTotal.WithLabelValues(observability.RelayFailed).Inc()
		slog.Error("relay failed", "handle", h, "request_id", p.RequestID, "error", err)
		return transport.Outcome{Handle: h, Status: http.StatusInternalServerError, Err: err}
	}

	d := transport.NewDelivery(header, ex.Body.Detach())
	if err := p.Deliver(d); err != nil {
		d.Body.Close()
		return e.reject(h, fmt.Errorf("%w: handle %s", err, h), observability.RelayNotLive)
	}
	debug.Log("relay", "response delivered", "handle", h, "request_id", p.RequestID, "caller", auth.Subject(ctx),
		"headers", len(header), "bytes", d.Body.Size(), "spooled", d.Body.Spooled())

	select {
	case werr := <-d.Done():
		if werr != nil {
			observability.RelayTotal.WithLabelValues(observability.RelayFailed).Inc()
			return transport.Outcome{Handle: h, Status: http.StatusInternalServerError, Err: werr}
		}
	case <-ctx.Done():
		observability.RelayTotal.WithLabelValues(observability.RelayFailed).Inc()
		return transport.Outcome{Handle: h, Status: http.StatusInternalServerError, Err: ctx.Err()}
	}

	observability.RelayTotal.WithLabelValues(observability.RelayRelayed).Inc()
	return transport.Outcome{Handle: h, Status: http.StatusOK}
}

// relayHeaders selects the headers starting with the response prefix and
// strips it. All occurrences are kept in order, values unchanged.
func (e *Engine) relayHeaders(in exchange.Header) (exchange.Header, error) {
	prefix := e.cfg.ResponseHeaderPrefix
	var out exchange.Header
	for _, f := range in {
		if len(f.Name) <= len(prefix) || !strings.EqualFold(f.Name[:len(prefix)], prefix) {
			continue
		}
		if len(out) == e.cfg.MaxRelayHeaders {
			return nil, fmt.Errorf("%w: more than %d response headers", api.ErrAllocation, e.cfg.MaxRelayHeaders)
		}
		out = append(out, exchange.HeaderField{Name: f.Name[len(prefix):], Value: f.Value})
	}
	return out, nil
}

func (e *Engine) reject(h handle.Handle, err error, outcome string) transport.Outcome {
	observability.RelayTotal.WithLabelValues(outcome).Inc()
	slog.Warn("relay rejected", "handle", h, "error", err)
	status := http.StatusBadRequest
	if !errors.Is(err, api.ErrMalformedHandle) && !errors.Is(err, api.ErrTargetNotLive) {
		status = http.StatusInternalServerError
	}
	return transport.Outcome{Handle: h, Status: status, Err: err}
}
