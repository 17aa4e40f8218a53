package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"3tcapital/ms_extraccion_core/internal/core/llm"
)

type capturedRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		if captured != nil {
			json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBackend_Prompt(t *testing.T) {
	var captured capturedRequest
	server := newServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"vendorCode\":\"V1\"}"}}],
		"usage": {"prompt_tokens": 120, "completion_tokens": 9, "total_tokens": 129}
	}`, &captured)

	backend := New(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1/", Model: "gpt-4o-mini", JSONMode: true}, server.Client())

	resp, err := backend.Prompt(context.Background(), "Match the vendor ACME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Text != `{"vendorCode":"V1"}` {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Usage.InputTokens != 120 || resp.Usage.OutputTokens != 9 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	if captured.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %q", captured.Model)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", captured.ResponseFormat)
	}
	if len(captured.Messages) != 2 || captured.Messages[1].Content != "Match the vendor ACME" {
		t.Errorf("unexpected messages %+v", captured.Messages)
	}
}

func TestBackend_EmptyChoice(t *testing.T) {
	server := newServer(t, http.StatusOK, `{"choices": [], "usage": {"prompt_tokens": 5, "completion_tokens": 0}}`, nil)
	backend := New(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"}, nil)

	resp, err := backend.Prompt(context.Background(), "p")
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
	if resp.Usage.InputTokens != 5 {
		t.Errorf("expected usage to be kept, got %+v", resp.Usage)
	}
}

func TestBackend_APIError(t *testing.T) {
	server := newServer(t, http.StatusTooManyRequests, `{"error": {"message": "Rate limit reached", "type": "requests"}}`, nil)
	backend := New(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"}, nil)

	_, err := backend.Prompt(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, llm.ErrEmptyResponse) || errors.Is(err, llm.ErrMalformedResponse) {
		t.Errorf("expected a transport error, got %v", err)
	}
}
