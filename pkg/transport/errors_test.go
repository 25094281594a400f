package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/jsonhandler/pkg/api"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name       string
		errType    api.ErrorType
		wantStatus int
	}{
		{"invalid_request -> 400", api.ErrorTypeInvalidRequest, http.StatusBadRequest},
		{"not_found -> 404", api.ErrorTypeNotFound, http.StatusNotFound},
		{"unauthorized -> 401", api.ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"gateway_timeout -> 504", api.ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"server_error -> 500", api.ErrorTypeServerError, http.StatusInternalServerError},
		{"unknown type -> 500", api.ErrorType("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &api.APIError{Type: tt.errType, Message: "test"}
			if got := HTTPStatusFromError(err); got != tt.wantStatus {
				t.Errorf("HTTPStatusFromError(%q) = %d, want %d", tt.errType, got, tt.wantStatus)
			}
		})
	}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("parse: %w", api.ErrMalformedHandle), http.StatusBadRequest},
		{api.ErrTargetNotLive, http.StatusBadRequest},
		{&api.HandlerRejectedError{Code: 3}, http.StatusInternalServerError},
		{fmt.Errorf("copy: %w", api.ErrAllocation), http.StatusInternalServerError},
		{api.NewTimeoutError("no response"), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFromError(tt.err); got != tt.want {
			t.Errorf("StatusFromError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorResponse(t *testing.T) {
	apiErr := api.NewInvalidRequestError("x-nginx-request-handle", "is required")
	rec := httptest.NewRecorder()

	WriteErrorResponse(rec, apiErr, http.StatusBadRequest)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var resp api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error type = %q, want %q", resp.Error.Type, api.ErrorTypeInvalidRequest)
	}
	if resp.Error.Param != "x-nginx-request-handle" {
		t.Errorf("error param = %q", resp.Error.Param)
	}
}

func TestWriteAPIError(t *testing.T) {
	tests := []struct {
		name       string
		apiErr     *api.APIError
		wantStatus int
	}{
		{"invalid_request", api.NewInvalidRequestError("", "bad handle"), http.StatusBadRequest},
		{"not_found", api.NewNotFoundError("exchange not found"), http.StatusNotFound},
		{"server_error", api.NewServerError("internal failure"), http.StatusInternalServerError},
		{"timeout", api.NewTimeoutError("no response"), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAPIError(rec, tt.apiErr)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp api.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error.Type != tt.apiErr.Type {
				t.Errorf("error type = %q, want %q", resp.Error.Type, tt.apiErr.Type)
			}
		})
	}
}
