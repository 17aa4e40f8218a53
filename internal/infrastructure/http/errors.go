package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a standardized error response format.
type ErrorResponse struct {
	Message       string   `json:"message"`
	Errors        []string `json:"errors"`
	CorrelationID string   `json:"correlationId,omitempty"`
}

// WriteJSON encodes body with the given status code. Encoding failures are
// logged since the status line has already been sent.
func WriteJSON(w http.ResponseWriter, statusCode int, body any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil && log != nil {
		log.Error("failed to encode response", "error", err, "status", statusCode)
	}
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string, errors []string, log *slog.Logger) {
	if errors == nil {
		errors = []string{}
	}
	WriteJSON(w, statusCode, ErrorResponse{
		Message:       message,
		Errors:        errors,
		CorrelationID: w.Header().Get("X-Correlation-Id"),
	}, log)
}
