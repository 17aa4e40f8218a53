package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"3tcapital/ms_extraccion_core/internal/core/audit"
	ctxutil "3tcapital/ms_extraccion_core/internal/infrastructure/context"
	"3tcapital/ms_extraccion_core/internal/testutil"
)

type mockAuditRepo struct {
	mu    sync.Mutex
	saved []audit.BackendCallLog
	err   error
}

func (m *mockAuditRepo) Save(ctx context.Context, log audit.BackendCallLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, log)
	return m.err
}

func (m *mockAuditRepo) FindByCorrelationID(ctx context.Context, correlationID string) ([]audit.BackendCallLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []audit.BackendCallLog
	for _, log := range m.saved {
		if log.CorrelationID == correlationID {
			results = append(results, log)
		}
	}
	return results, nil
}

func newTestTracedClient(repo audit.Repository) *TracedClient {
	return NewTracedClient(&TracedClientConfig{
		Timeout:         5 * time.Second,
		AuditEnabled:    true,
		LogRequestBody:  true,
		LogResponseBody: true,
		MaxBodySize:     1024,
	}, testutil.NewNullLogger(), repo, "openai")
}

func TestTracedClientDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Correlation-ID") != "msg-123" {
			t.Errorf("expected X-Correlation-ID msg-123, got %q", r.Header.Get("X-Correlation-ID"))
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "Match the vendor") {
			t.Error("request body not forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	defer server.Close()

	repo := &mockAuditRepo{}
	client := newTestTracedClient(repo)

	ctx := ctxutil.WithCorrelationID(context.Background(), "msg-123")
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/v1/chat/completions",
		strings.NewReader(`{"model":"gpt-4o-mini","messages":[{"role":"user","content":"Match the vendor"}]}`))
	req.Header.Set("Authorization", "Bearer sk-live")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "choices") {
		t.Error("response body not restored for caller")
	}

	client.Wait()

	logs, _ := repo.FindByCorrelationID(context.Background(), "msg-123")
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit log, got %d", len(logs))
	}
	entry := logs[0]
	if entry.Backend != "openai" || entry.Operation != "ChatCompletions" {
		t.Errorf("expected openai/ChatCompletions, got %s/%s", entry.Backend, entry.Operation)
	}
	if entry.RequestHeaders["Authorization"] != "[REDACTED]" {
		t.Errorf("expected redacted authorization, got %q", entry.RequestHeaders["Authorization"])
	}
	if entry.ResponseStatus == nil || *entry.ResponseStatus != http.StatusOK {
		t.Errorf("expected status 200, got %v", entry.ResponseStatus)
	}
	if !strings.Contains(string(entry.ResponseBody), "prompt_tokens") {
		t.Errorf("expected usage counters in audited body, got %s", entry.ResponseBody)
	}
}

func TestTracedClient_AuditOutlivesRequestContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	repo := &mockAuditRepo{}
	client := newTestTracedClient(repo)

	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxutil.WithCorrelationID(ctx, "msg-cancelled")

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/v1/chat/completions", strings.NewReader(`{}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	cancel()

	client.Wait()

	if len(repo.saved) != 1 {
		t.Fatalf("expected 1 audit log saved, got %d", len(repo.saved))
	}
	if repo.saved[0].CorrelationID != "msg-cancelled" {
		t.Errorf("expected correlation id msg-cancelled, got %q", repo.saved[0].CorrelationID)
	}
}

func TestTracedClient_TransportErrorIsAudited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	repo := &mockAuditRepo{}
	client := newTestTracedClient(repo)

	req, _ := http.NewRequest(http.MethodGet, url+"/v1/models", nil)
	if _, err := client.Do(req); err == nil {
		t.Fatal("expected transport error")
	}
	client.Wait()

	if len(repo.saved) != 1 {
		t.Fatalf("expected 1 audit log, got %d", len(repo.saved))
	}
	entry := repo.saved[0]
	if entry.ErrorMessage == "" || entry.ResponseStatus != nil {
		t.Errorf("expected error without status, got %+v", entry)
	}
	if !strings.HasPrefix(entry.CorrelationID, "audit-") {
		t.Errorf("expected generated correlation id, got %q", entry.CorrelationID)
	}
}

func TestTracedClient_AuditFailureDoesNotFailCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestTracedClient(&mockAuditRepo{err: errors.New("db down")})

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/v1/models", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	client.Wait()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
}

func TestTracedClient_AuditDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	repo := &mockAuditRepo{}
	client := NewTracedClient(&TracedClientConfig{}, testutil.NewNullLogger(), repo, "bedrock")

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	client.Wait()

	if len(repo.saved) != 0 {
		t.Errorf("expected no audit logs, got %d", len(repo.saved))
	}
}

func TestTracedClientExtractOperation(t *testing.T) {
	client := NewTracedClient(&TracedClientConfig{}, testutil.NewNullLogger(), &mockAuditRepo{}, "bedrock")

	tests := []struct {
		name     string
		url      string
		method   string
		expected string
	}{
		{"chat completions", "https://api.openai.com/v1/chat/completions", "POST", "ChatCompletions"},
		{"bedrock converse", "https://bedrock-runtime.ap-southeast-1.amazonaws.com/model/anthropic.claude-3-haiku-20240307-v1:0/converse", "POST", "Converse"},
		{"hyphenated endpoint", "https://bedrock-runtime.us-east-1.amazonaws.com/model/m/converse-stream", "POST", "ConverseStream"},
		{"trailing slash", "https://api.openai.com/v1/embeddings/", "POST", "Embeddings"},
		{"object key", "https://bucket.s3.amazonaws.com/results/u1/a.json", "GET", "GET_bedrock"},
		{"root", "https://api.example.com/", "DELETE", "DELETE_bedrock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, tt.url, nil)
			if operation := client.extractOperation(req); operation != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, operation)
			}
		})
	}
}
