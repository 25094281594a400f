package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rhuss/jsonhandler/pkg/api"
)

func TestResponseChannelRejectsBadHandles(t *testing.T) {
	tests := []struct {
		name   string
		handle string
		code   string
	}{
		{"missing header", "", "malformed_handle"},
		{"not a number", "abc", "malformed_handle"},
		{"overlong", "123456789012345678901234567890123", "malformed_handle"},
		{"zero handle", "0", "target_not_live"},
		{"unknown handle", "4294967297", "target_not_live"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postResponse(t, tt.handle, "orphan body")
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var errResp api.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
				t.Fatalf("decoding error: %v", err)
			}
			if errResp.Error == nil || errResp.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", errResp.Error, tt.code)
			}
		})
	}
}
