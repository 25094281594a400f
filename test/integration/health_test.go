package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz"} {
		resp := getURL(t, testEnv.BaseURL()+path)
		body := readBody(t, resp)

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if !strings.Contains(body, "ok") {
			t.Errorf("%s: body = %q, want to contain 'ok'", path, body)
		}
	}
}
