package response

import (
	"encoding/json"
	"net/http"

	"lms-module/errors"
	"lms-module/logger"
)

// StandardResponse represents the standard API response structure
type StandardResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SuccessResponse sends a success response with given status code, message, and data
func SuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	response := StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	}
	SendJSON(w, statusCode, response)
}

// ErrorResponse sends an error response with given status code and error message
func ErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	response := StandardResponse{
		Status: "error",
		Error:  errorMsg,
	}
	SendJSON(w, statusCode, response)
}

// FromError writes an error response whose status follows the error kind.
// Internal and persistence details are not exposed.
func FromError(w http.ResponseWriter, err error, fallback string) {
	status := StatusFor(err)
	msg := fallback
	if status < http.StatusInternalServerError {
		msg = errors.MessageOf(err)
	}
	ErrorResponse(w, status, msg)
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.Invalid:
		return http.StatusBadRequest
	case errors.NotFound:
		return http.StatusNotFound
	case errors.Conflict:
		return http.StatusConflict
	case errors.Unauthorized:
		return http.StatusUnauthorized
	case errors.Forbidden:
		return http.StatusForbidden
	case errors.UpstreamAuth, errors.UpstreamSubmit:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// SendJSON encodes and sends a JSON response
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// Text writes a plain-text body. Used for gateway-facing endpoints.
func Text(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if body != "" {
		if _, err := w.Write([]byte(body)); err != nil {
			logger.Error("Error writing response: %v", err)
		}
	}
}
