package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"3tcapital/ms_extraccion_core/internal/testutil"
)

// failingResponseWriter is a ResponseWriter that can simulate write failures
type failingResponseWriter struct {
	http.ResponseWriter
	failOnWrite bool
}

func (f *failingResponseWriter) Write(p []byte) (int, error) {
	if f.failOnWrite {
		return 0, &json.MarshalerError{}
	}
	return f.ResponseWriter.Write(p)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		message        string
		errors         []string
		withLogger     bool
		expectedStatus int
		expectedBody   ErrorResponse
	}{
		{
			name:           "valid error response",
			statusCode:     http.StatusBadRequest,
			message:        "Validation error",
			errors:         []string{"merchantId is required"},
			withLogger:     true,
			expectedStatus: http.StatusBadRequest,
			expectedBody: ErrorResponse{
				Message: "Validation error",
				Errors:  []string{"merchantId is required"},
			},
		},
		{
			name:           "multiple errors",
			statusCode:     http.StatusUnprocessableEntity,
			message:        "Validation error",
			errors:         []string{"Error 1", "Error 2", "Error 3"},
			withLogger:     false,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody: ErrorResponse{
				Message: "Validation error",
				Errors:  []string{"Error 1", "Error 2", "Error 3"},
			},
		},
		{
			name:           "empty errors array",
			statusCode:     http.StatusInternalServerError,
			message:        "Internal error",
			errors:         []string{},
			withLogger:     true,
			expectedStatus: http.StatusInternalServerError,
			expectedBody: ErrorResponse{
				Message: "Internal error",
				Errors:  []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			var logger *slog.Logger
			if tt.withLogger {
				logger = testutil.NewTestLogger()
			}

			WriteError(w, tt.statusCode, tt.message, tt.errors, logger)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status code %d, got %d", tt.expectedStatus, w.Code)
			}

			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", contentType)
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if response.Message != tt.expectedBody.Message {
				t.Errorf("expected message %q, got %q", tt.expectedBody.Message, response.Message)
			}

			if len(response.Errors) != len(tt.expectedBody.Errors) {
				t.Errorf("expected %d errors, got %d", len(tt.expectedBody.Errors), len(response.Errors))
			}

			for i, expectedErr := range tt.expectedBody.Errors {
				if i < len(response.Errors) && response.Errors[i] != expectedErr {
					t.Errorf("expected error[%d] %q, got %q", i, expectedErr, response.Errors[i])
				}
			}
		})
	}
}

func TestWriteError_WithNilLogger(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "Test", []string{"Error"}, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status code %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestWriteError_JSONEncodingError(t *testing.T) {
	w := &failingResponseWriter{
		ResponseWriter: httptest.NewRecorder(),
		failOnWrite:    true,
	}

	logger := testutil.NewTestLogger()
	WriteError(w, http.StatusBadRequest, "Test", []string{"Error"}, logger)
}

func TestWriteError_NilErrorsEncodeAsEmptyArray(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("X-Correlation-Id", "corr-1")

	WriteError(w, http.StatusConflict, "already queued", nil, nil)

	var raw map[string]any
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if errs, ok := raw["errors"].([]any); !ok || len(errs) != 0 {
		t.Errorf("expected empty errors array, got %v", raw["errors"])
	}
	if raw["correlationId"] != "corr-1" {
		t.Errorf("expected correlationId corr-1, got %v", raw["correlationId"])
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusAccepted, map[string]string{"taskId": "extraction:robo:u1"}, testutil.NewTestLogger())

	if w.Code != http.StatusAccepted {
		t.Errorf("expected status code %d, got %d", http.StatusAccepted, w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["taskId"] != "extraction:robo:u1" {
		t.Errorf("expected taskId extraction:robo:u1, got %q", body["taskId"])
	}
}
