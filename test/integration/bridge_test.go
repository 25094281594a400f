package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/document"
	"github.com/rhuss/jsonhandler/pkg/engine"
	"github.com/rhuss/jsonhandler/pkg/journal"
)

func TestForwardReturnsHandlerResponse(t *testing.T) {
	resp := forward(t, http.MethodPost, "/test?x=1&y=2", "hello",
		"X-Request-ID", "it-forward", "X-Custom", "custom value")
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if resp.ContentLength != int64(len(body)) {
		t.Errorf("Content-Length = %d, body has %d bytes", resp.ContentLength, len(body))
	}

	env := []byte(body)
	checks := map[string]string{
		"meta.uri":         "/test",
		"meta.args":        "x=1&y=2",
		"meta.unparsedUri": "/test?x=1&y=2",
		"meta.method":      "POST",
		"meta.protocol":    "HTTP/1.1",
		"headers.X-Custom": "custom value",
		"data.utf8":        "hello",
	}
	for path, want := range checks {
		if got := document.Lookup(env, path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
	for _, path := range []string{"data.hex", "data.file"} {
		if r := document.Lookup(env, path); r.Type.String() != "Null" {
			t.Errorf("%s = %s, want null", path, r.Raw)
		}
	}
	if document.Lookup(env, "meta.requestHandle").Int() == 0 {
		t.Error("meta.requestHandle is zero")
	}

	waitForState(t, resp.Header.Get(engine.ExchangeIDHeader), string(journal.StateRelayed))
}

func TestForwardBinaryBody(t *testing.T) {
	resp := forward(t, http.MethodPut, "/test", string([]byte{0xff, 0x00, 0x10}))
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if got := document.Lookup([]byte(body), "data.hex").String(); got != "ff0010" {
		t.Errorf("data.hex = %q, want ff0010", got)
	}
	if r := document.Lookup([]byte(body), "data.utf8"); r.Type.String() != "Null" {
		t.Errorf("data.utf8 = %s, want null", r.Raw)
	}
}

func TestForwardSpooledBody(t *testing.T) {
	payload := strings.Repeat("spool me ", 512)
	resp := forward(t, http.MethodPost, "/large", payload)
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	file := document.Lookup([]byte(body), "data.file").String()
	if file == "" {
		t.Fatalf("data.file missing in %s", body)
	}
	if r := document.Lookup([]byte(body), "data.utf8"); r.Type.String() != "Null" {
		t.Errorf("data.utf8 = %s, want null", r.Raw)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("spooled body %s not removed", file)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestForwardRelaysPrefixedHeaders(t *testing.T) {
	resp := forward(t, http.MethodGet, "/headers", "")
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if body != "custom body" {
		t.Errorf("body = %q, want %q", body, "custom body")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	cookies := resp.Header.Values("Set-Cookie")
	if len(cookies) != 2 || cookies[0] != "a=1" || cookies[1] != "b=2" {
		t.Errorf("Set-Cookie = %v, want [a=1 b=2]", cookies)
	}
	if got := resp.Header.Get("X-Trace"); got != "id=42; sampled" {
		t.Errorf("X-Trace = %q", got)
	}
	if resp.Header.Get("X-Ignored") != "" {
		t.Error("unprefixed header was relayed")
	}
}

func TestForwardHandlerRejects(t *testing.T) {
	resp := forward(t, http.MethodPost, "/reject", "nope", "X-Request-ID", "it-reject")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error: %v", err)
	}
	if errResp.Error == nil || errResp.Error.Code != "handler_rejected" {
		t.Errorf("error = %+v, want handler_rejected", errResp.Error)
	}

	entry, err := testEnv.Journal.Get(context.Background(), resp.Header.Get(engine.ExchangeIDHeader))
	if err != nil {
		t.Fatalf("journal entry: %v", err)
	}
	if entry.State != journal.StateRejected || entry.DispatchCode != 7 {
		t.Errorf("entry state = %s code = %d, want rejected/7", entry.State, entry.DispatchCode)
	}
}

func TestForwardTimeoutThenLateResponse(t *testing.T) {
	start := time.Now()
	resp := forward(t, http.MethodPost, "/silent", "wait", "X-Request-ID", "it-silent")
	resp.Body.Close()

	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", resp.StatusCode)
	}
	if elapsed := time.Since(start); elapsed < responseTimeout {
		t.Errorf("answered after %s, before the %s timeout", elapsed, responseTimeout)
	}

	entry, err := testEnv.Journal.Get(context.Background(), resp.Header.Get(engine.ExchangeIDHeader))
	if err != nil {
		t.Fatalf("journal entry: %v", err)
	}
	if entry.State != journal.StateTimeout {
		t.Errorf("entry state = %s, want timeout", entry.State)
	}

	late := postResponse(t, itoa(entry.Handle), "too late")
	late.Body.Close()
	if late.StatusCode != http.StatusBadRequest {
		t.Errorf("late response status = %d, want 400", late.StatusCode)
	}
}

func TestConcurrentExchangesStayCorrelated(t *testing.T) {
	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("payload-%d", i)
			resp := forward(t, http.MethodPost, "/test", want)
			body := readBody(t, resp)
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("exchange %d: status %d", i, resp.StatusCode)
				return
			}
			if got := document.Lookup([]byte(body), "data.utf8").String(); got != want {
				errs <- fmt.Errorf("exchange %d got %q", i, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestExchangeLookup(t *testing.T) {
	resp := forward(t, http.MethodPost, "/test", "lookup", "X-Request-ID", "it-lookup")
	resp.Body.Close()
	id := resp.Header.Get(engine.ExchangeIDHeader)
	waitForState(t, id, string(journal.StateRelayed))

	lookup := getURL(t, testEnv.BaseURL()+"/v1/exchanges/"+id)
	defer lookup.Body.Close()
	if lookup.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", lookup.StatusCode)
	}
	var entry journal.Entry
	if err := json.NewDecoder(lookup.Body).Decode(&entry); err != nil {
		t.Fatalf("decoding entry: %v", err)
	}
	if entry.ID != id || entry.RequestID != "it-lookup" || entry.URI != "/test" || entry.Method != "POST" || entry.RequestSize != 6 || entry.Status != http.StatusOK {
		t.Errorf("entry = %+v", entry)
	}

	missing := getURL(t, testEnv.BaseURL()+"/v1/exchanges/never-seen")
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", missing.StatusCode)
	}
}

func TestRepeatedRequestIDGetsSeparateEntries(t *testing.T) {
	var ids []string
	for _, body := range []string{"one", "two"} {
		resp := forward(t, http.MethodPost, "/test", body, "X-Request-ID", "it-repeated")
		readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		ids = append(ids, resp.Header.Get(engine.ExchangeIDHeader))
	}
	if ids[0] == "" || ids[0] == ids[1] {
		t.Fatalf("exchange IDs = %v", ids)
	}
	for _, id := range ids {
		waitForState(t, id, string(journal.StateRelayed))
	}
}
