package transport

import (
	"encoding/json"
	"net/http"

	"github.com/rhuss/jsonhandler/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Body size limits are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case api.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// StatusFromError classifies any error by way of api.FromError.
func StatusFromError(err error) int {
	return HTTPStatusFromError(api.FromError(err))
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// wrapper format from pkg/api.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
