// Package openai implements llm.Backend on an OpenAI-compatible chat API.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"3tcapital/ms_extraccion_core/internal/core/llm"
)

const systemPrompt = "You reconcile data extracted from business documents. Answer with a single JSON value and nothing else."

// Config selects the model and sampling settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Backend sends prompts as single-turn chat completions.
type Backend struct {
	client *openai.Client
	cfg    Config
}

// New creates a backend. httpClient may be nil; pass the traced client to
// audit every call.
func New(cfg Config, httpClient openai.HTTPDoer) *Backend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &Backend{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}
}

// Prompt sends prompt and returns the first choice with its token usage.
func (b *Backend) Prompt(ctx context.Context, prompt string) (llm.Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       b.cfg.Model,
		Temperature: b.cfg.Temperature,
		MaxTokens:   b.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if b.cfg.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return llm.Response{}, fmt.Errorf("chat completion: %w", err)
	}

	usage := llm.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return llm.Response{Usage: usage}, llm.ErrEmptyResponse
	}
	return llm.Response{Text: resp.Choices[0].Message.Content, Usage: usage}, nil
}

var _ llm.Backend = (*Backend)(nil)
