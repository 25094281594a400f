package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rhuss/jsonhandler/pkg/debug"
)

// CodeHeader lets a handler service report its own non-zero exit code.
const CodeHeader = "X-Handler-Code"

// HTTP posts envelopes to a handler service. A 2xx answer is exit code 0.
// Otherwise the exit code is taken from CodeHeader, or is the status.
type HTTP struct {
	client *http.Client
	url    string
}

// NewHTTP creates an HTTP backend. A zero timeout defaults to 30s.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{client: &http.Client{Timeout: timeout}, url: url}
}

// Submit posts envelope as application/json.
func (h *HTTP) Submit(ctx context.Context, envelope []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(envelope))
	if err != nil {
		return 0, fmt.Errorf("creating handler request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("posting envelope to %s: %w", h.url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	debug.Log("dispatch", "http submit", "url", h.url, "status", resp.StatusCode)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return 0, nil
	}
	if code, err := strconv.Atoi(resp.Header.Get(CodeHeader)); err == nil && code != 0 {
		return code, nil
	}
	return resp.StatusCode, nil
}
