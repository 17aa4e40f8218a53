package llm

import (
	"context"
	"errors"
)

var (
	// ErrMalformedResponse is returned when the backend output is not the requested JSON.
	ErrMalformedResponse = errors.New("llm: malformed response")
	// ErrEmptyResponse is returned when the backend produced no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Usage counts tokens consumed by one or more backend calls.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Response is the raw text returned by a backend call.
type Response struct {
	Text  string
	Usage Usage
}

// Backend sends a prompt to a generative text model.
type Backend interface {
	Prompt(ctx context.Context, prompt string) (Response, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt string) (Response, error)

func (f BackendFunc) Prompt(ctx context.Context, prompt string) (Response, error) {
	return f(ctx, prompt)
}
