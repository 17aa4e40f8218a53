package prompting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"3tcapital/ms_extraccion_core/internal/core/llm"
)

// DefaultMaxAttempts bounds local retries on malformed backend output.
const DefaultMaxAttempts = 3

// Client sends rendered prompts to a backend and decodes strict JSON answers.
type Client struct {
	backend     llm.Backend
	templates   *Templates
	maxAttempts int
	log         *slog.Logger
}

// NewClient creates a prompting client. maxAttempts <= 0 uses DefaultMaxAttempts.
func NewClient(backend llm.Backend, templates *Templates, maxAttempts int, log *slog.Logger) *Client {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Client{
		backend:     backend,
		templates:   templates,
		maxAttempts: maxAttempts,
		log:         log.With("component", "prompting"),
	}
}

// Templates returns the template set used by the client.
func (c *Client) Templates() *Templates {
	return c.templates
}

// Call sends prompt and decodes the answer into a fresh T. The answer is
// retried when it is not valid JSON or check rejects it; backend errors are
// returned immediately. Usage covers every attempt.
func Call[T any](ctx context.Context, c *Client, prompt string, check func(T) error) (T, llm.Usage, error) {
	return CallOnto(ctx, c, prompt, func() T {
		var zero T
		return zero
	}, check)
}

// CallOnto is Call decoding each attempt onto the value returned by seed, so
// keys missing from the answer keep their seeded value. seed must return a
// value that shares no slices or maps with anything the caller keeps.
func CallOnto[T any](ctx context.Context, c *Client, prompt string, seed func() T, check func(T) error) (T, llm.Usage, error) {
	var (
		zero    T
		usage   llm.Usage
		lastErr error
	)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.backend.Prompt(ctx, prompt)
		if err != nil {
			return zero, usage, fmt.Errorf("backend call: %w", err)
		}
		usage.Add(resp.Usage)

		out := seed()
		if err := DecodeJSON(resp.Text, &out); err != nil {
			lastErr = err
		} else if check != nil {
			if err := check(out); err != nil {
				lastErr = fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
			} else {
				return out, usage, nil
			}
		} else {
			return out, usage, nil
		}

		c.log.Warn("Rejected backend response",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"error", lastErr,
		)
	}

	return zero, usage, lastErr
}

// DecodeJSON extracts the JSON value from a backend answer, tolerating
// markdown fences and leading or trailing prose, and unmarshals it into out.
func DecodeJSON(text string, out any) error {
	body := ExtractJSON(text)
	if body == "" {
		return fmt.Errorf("%w: no JSON value in response", llm.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}
	return nil
}

// ExtractJSON returns the outermost JSON object or array found in text.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return ""
	}
	return text[start : end+1]
}

// IsMalformed reports whether err comes from an unusable backend answer.
func IsMalformed(err error) bool {
	return errors.Is(err, llm.ErrMalformedResponse)
}
