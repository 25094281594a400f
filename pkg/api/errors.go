package api

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the bridge can report.
var (
	// ErrLibraryNotFound is returned when a handler or document library
	// cannot be opened or is not registered.
	ErrLibraryNotFound = errors.New("library not found")

	// ErrSymbolMissing is returned when a handler library lacks a required
	// entry point.
	ErrSymbolMissing = errors.New("symbol missing")

	// ErrMalformedHandle is returned when a correlation handle is absent or
	// cannot be parsed.
	ErrMalformedHandle = errors.New("malformed request handle")

	// ErrTargetNotLive is returned when a handle does not resolve to a
	// suspended exchange that is still waiting for its response.
	ErrTargetNotLive = errors.New("target exchange not live")

	// ErrAllocation is returned when copying relayed headers or body would
	// exceed the configured relay limits.
	ErrAllocation = errors.New("relay allocation failure")

	// ErrHandlerRejected is returned when the external handler refuses an
	// envelope.
	ErrHandlerRejected = errors.New("handler rejected request")

	// ErrBodyAccess is returned when a request body cannot be read, spooled,
	// or written.
	ErrBodyAccess = errors.New("body access error")
)

// SymbolMissingError names the entry point that could not be resolved.
type SymbolMissingError struct {
	Library string
	Name    string
}

func (e *SymbolMissingError) Error() string {
	return fmt.Sprintf("symbol %q missing in library %q", e.Name, e.Library)
}

// Unwrap returns ErrSymbolMissing.
func (e *SymbolMissingError) Unwrap() error { return ErrSymbolMissing }

// HandlerRejectedError carries the non-zero code returned by the handler
// entry point.
type HandlerRejectedError struct {
	Code int
}

func (e *HandlerRejectedError) Error() string {
	return fmt.Sprintf("handler rejected request with code %d", e.Code)
}

// Unwrap returns ErrHandlerRejected.
func (e *HandlerRejectedError) Unwrap() error { return ErrHandlerRejected }

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeUnauthorized   ErrorType = "unauthorized"
	ErrorTypeTimeout        ErrorType = "gateway_timeout"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewTimeoutError creates an APIError for exchanges whose response never arrived.
func NewTimeoutError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTimeout,
		Message: message,
	}
}

// FromError converts any error into an APIError, classifying it by the
// sentinel errors of this package. The code field carries a stable
// machine-readable reason.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, ErrMalformedHandle):
		return &APIError{Type: ErrorTypeInvalidRequest, Code: "malformed_handle", Message: err.Error()}
	case errors.Is(err, ErrTargetNotLive):
		return &APIError{Type: ErrorTypeInvalidRequest, Code: "target_not_live", Message: err.Error()}
	case errors.Is(err, ErrHandlerRejected):
		return &APIError{Type: ErrorTypeServerError, Code: "handler_rejected", Message: err.Error()}
	case errors.Is(err, ErrAllocation):
		return &APIError{Type: ErrorTypeServerError, Code: "allocation_failure", Message: err.Error()}
	case errors.Is(err, ErrBodyAccess):
		return &APIError{Type: ErrorTypeServerError, Code: "body_access", Message: err.Error()}
	default:
		return NewServerError(err.Error())
	}
}
