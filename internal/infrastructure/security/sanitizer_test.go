package security

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"testing"
)

func TestSanitizeHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  http.Header
		expected map[string]string
	}{
		{
			name: "sensitive headers are redacted",
			headers: http.Header{
				"Authorization":        []string{"Bearer sk-live"},
				"X-Amz-Security-Token": []string{"IQoJb3JpZ2lu"},
				"Content-Type":         []string{"application/json"},
				"Openai-Organization":  []string{"org-123"},
			},
			expected: map[string]string{
				"Authorization":        "[REDACTED]",
				"X-Amz-Security-Token": "[REDACTED]",
				"Content-Type":         "application/json",
				"Openai-Organization":  "[REDACTED]",
			},
		},
		{
			name: "multiple values are joined",
			headers: http.Header{
				"Accept": []string{"application/json", "text/event-stream"},
			},
			expected: map[string]string{
				"Accept": "application/json, text/event-stream",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeHeaders(tt.headers)

			for key, expectedValue := range tt.expected {
				if result[key] != expectedValue {
					t.Errorf("expected %s=%s, got %s", key, expectedValue, result[key])
				}
			}
		})
	}
}

func TestSanitizeBody(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		maxSize     int
		expectation func(t *testing.T, result json.RawMessage)
	}{
		{
			name:    "empty body returns nil",
			body:    []byte{},
			maxSize: 1000,
			expectation: func(t *testing.T, result json.RawMessage) {
				if result != nil {
					t.Errorf("expected nil, got %v", result)
				}
			},
		},
		{
			name:    "credentials are redacted and usage is kept",
			body:    []byte(`{"model":"gpt-4o-mini","api_key":"sk-live","max_tokens":4096,"usage":{"prompt_tokens":120,"completion_tokens":30}}`),
			maxSize: 1000,
			expectation: func(t *testing.T, result json.RawMessage) {
				var data map[string]any
				if err := json.Unmarshal(result, &data); err != nil {
					t.Fatalf("failed to unmarshal result: %v", err)
				}
				if data["api_key"] != "[REDACTED]" {
					t.Errorf("expected api_key to be redacted, got %v", data["api_key"])
				}
				if data["max_tokens"] != float64(4096) {
					t.Errorf("expected max_tokens to remain, got %v", data["max_tokens"])
				}
				usage, ok := data["usage"].(map[string]any)
				if !ok || usage["prompt_tokens"] != float64(120) {
					t.Errorf("expected usage to remain, got %v", data["usage"])
				}
			},
		},
		{
			name:    "nested objects are sanitized",
			body:    []byte(`{"messages":[{"role":"user","content":"hi"}],"auth":{"session_token":"abc"},"aws":{"secretAccessKey":"x"}}`),
			maxSize: 1000,
			expectation: func(t *testing.T, result json.RawMessage) {
				var data map[string]any
				if err := json.Unmarshal(result, &data); err != nil {
					t.Fatalf("failed to unmarshal result: %v", err)
				}
				if data["auth"] != "[REDACTED]" {
					t.Errorf("expected auth field to be redacted, got %v", data["auth"])
				}
				aws, ok := data["aws"].(map[string]any)
				if !ok || aws["secretAccessKey"] != "[REDACTED]" {
					t.Errorf("expected secretAccessKey to be redacted, got %v", data["aws"])
				}
				messages, ok := data["messages"].([]any)
				if !ok || len(messages) != 1 {
					t.Errorf("expected messages to remain, got %v", data["messages"])
				}
			},
		},
		{
			name:    "body is truncated if too large",
			body:    []byte(`{"data":"very long string with lots of content"}`),
			maxSize: 20,
			expectation: func(t *testing.T, result json.RawMessage) {
				var data map[string]any
				if err := json.Unmarshal(result, &data); err != nil {
					t.Fatalf("failed to unmarshal result: %v", err)
				}
				if data["_truncated"] != true || data["_preview"] != `{"data":"very long s` {
					t.Errorf("expected truncated preview, got %v", data)
				}
			},
		},
		{
			name:    "plain text is wrapped",
			body:    []byte("upstream connect error"),
			maxSize: 1000,
			expectation: func(t *testing.T, result json.RawMessage) {
				var data map[string]any
				if err := json.Unmarshal(result, &data); err != nil {
					t.Fatalf("failed to unmarshal result: %v", err)
				}
				if data["_raw"] != "upstream connect error" || data["_format"] != "text" {
					t.Errorf("expected wrapped text, got %v", data)
				}
			},
		},
		{
			name:    "gzip body is inflated",
			body:    gzipped(t, `{"password":"x","id":"chatcmpl-1"}`),
			maxSize: 1000,
			expectation: func(t *testing.T, result json.RawMessage) {
				var data map[string]any
				if err := json.Unmarshal(result, &data); err != nil {
					t.Fatalf("failed to unmarshal result: %v", err)
				}
				if data["id"] != "chatcmpl-1" || data["password"] != "[REDACTED]" {
					t.Errorf("expected inflated and sanitized body, got %v", data)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeBody(tt.body, tt.maxSize)
			tt.expectation(t, result)
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "url without sensitive params unchanged",
			url:      "https://bedrock-runtime.ap-southeast-1.amazonaws.com/model/x/converse?page=1",
			expected: "https://bedrock-runtime.ap-southeast-1.amazonaws.com/model/x/converse?page=1",
		},
		{
			name:     "presigned url is redacted",
			url:      "https://bucket.s3.amazonaws.com/results/a.json?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Credential=AKIA%2F2025&X-Amz-Signature=abc",
			expected: "https://bucket.s3.amazonaws.com/results/a.json?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Credential=[REDACTED]&X-Amz-Signature=[REDACTED]",
		},
		{
			name:     "token param is redacted",
			url:      "https://api.example.com/data?token=abc123&format=json#top",
			expected: "https://api.example.com/data?token=[REDACTED]&format=json#top",
		},
		{
			name:     "url without query unchanged",
			url:      "https://api.openai.com/v1/chat/completions",
			expected: "https://api.openai.com/v1/chat/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeURL(tt.url)
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}
