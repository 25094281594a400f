package dispatch

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rhuss/jsonhandler/pkg/debug"
	"github.com/rhuss/jsonhandler/pkg/document"
)

// DefaultCorrelationHeader carries the handle on the response channel.
const DefaultCorrelationHeader = "X-Nginx-Request-Handle"

// Echo answers every envelope by posting the envelope itself back to the
// response channel, with content type application/json.
type Echo struct {
	client      *http.Client
	responseURL string
	header      string
	wg          sync.WaitGroup
}

// NewEcho creates an Echo backend relaying to responseURL.
func NewEcho(responseURL, correlationHeader string, timeout time.Duration) *Echo {
	if correlationHeader == "" {
		correlationHeader = DefaultCorrelationHeader
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Echo{
		client:      &http.Client{Timeout: timeout},
		responseURL: responseURL,
		header:      correlationHeader,
	}
}

// Submit accepts envelopes carrying meta.requestHandle and answers them
// asynchronously. Envelopes without a handle are rejected with code 1.
func (e *Echo) Submit(_ context.Context, envelope []byte) (int, error) {
	h := document.Lookup(envelope, "meta.requestHandle")
	if !h.Exists() {
		return 1, nil
	}
	body := bytes.Clone(envelope)
	handle := h.String()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.post(handle, body)
	}()
	return 0, nil
}

func (e *Echo) post(handle string, body []byte) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, e.responseURL, bytes.NewReader(body))
	if err != nil {
		slog.Error("echo request", "error", err)
		return
	}
	req.Header.Set(e.header, handle)
	req.Header.Set("X-Response-Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		slog.Error("echo relay failed", "handle", handle, "error", err)
		return
	}
	resp.Body.Close()
	debug.Log("dispatch", "echo relayed", "handle", handle, "status", resp.StatusCode)
}

// Wait blocks until every pending echo has been posted.
func (e *Echo) Wait() {
	e.wg.Wait()
}

// Close waits for pending echoes.
func (e *Echo) Close() error {
	e.wg.Wait()
	return nil
}
