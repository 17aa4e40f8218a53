package testutil

import (
	"context"
	"errors"
	"sync"

	"3tcapital/ms_extraccion_core/internal/core/llm"
)

// MockBackend is a mock implementation of llm.Backend for testing.
// When PromptFunc is nil, scripted Responses are returned in order.
type MockBackend struct {
	PromptFunc func(ctx context.Context, prompt string) (llm.Response, error)
	Responses  []string
	Usage      llm.Usage

	mu      sync.Mutex
	prompts []string
}

// Prompt calls the mock function if set, otherwise returns the next scripted response.
func (m *MockBackend) Prompt(ctx context.Context, prompt string) (llm.Response, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	n := len(m.prompts)
	m.mu.Unlock()

	if m.PromptFunc != nil {
		return m.PromptFunc(ctx, prompt)
	}
	if n > len(m.Responses) {
		return llm.Response{}, errors.New("mock backend: no scripted response left")
	}
	return llm.Response{Text: m.Responses[n-1], Usage: m.Usage}, nil
}

// Calls returns how many prompts were sent.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt sent so far.
func (m *MockBackend) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Ensure MockBackend implements llm.Backend interface.
var _ llm.Backend = (*MockBackend)(nil)
