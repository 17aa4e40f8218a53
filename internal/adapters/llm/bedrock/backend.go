// Package bedrock implements llm.Backend on the Bedrock Converse API.
package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"3tcapital/ms_extraccion_core/internal/core/llm"
)

const systemPrompt = "You reconcile data extracted from business documents. Answer with a single JSON value and nothing else."

// ConverseAPI is the subset of the Bedrock runtime client the backend needs.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Config selects the model and inference settings.
type Config struct {
	ModelID     string
	Temperature float32
	MaxTokens   int
}

// Backend sends prompts as single-turn conversations.
type Backend struct {
	client ConverseAPI
	cfg    Config
}

// New creates a backend on client.
func New(client ConverseAPI, cfg Config) *Backend {
	return &Backend{client: client, cfg: cfg}
}

// NewFromConfig creates a backend with a runtime client built from awsCfg.
func NewFromConfig(awsCfg aws.Config, cfg Config) *Backend {
	return New(bedrockruntime.NewFromConfig(awsCfg), cfg)
}

// Prompt sends prompt and joins the text blocks of the reply.
func (b *Backend) Prompt(ctx context.Context, prompt string) (llm.Response, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.cfg.ModelID),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: systemPrompt},
		},
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(b.cfg.Temperature),
		},
	}
	if b.cfg.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(b.cfg.MaxTokens))
	}

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return llm.Response{}, fmt.Errorf("converse %s: %w", b.cfg.ModelID, err)
	}

	var usage llm.Usage
	if out.Usage != nil {
		usage.InputTokens = int(aws.ToInt32(out.Usage.InputTokens))
		usage.OutputTokens = int(aws.ToInt32(out.Usage.OutputTokens))
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return llm.Response{Usage: usage}, llm.ErrEmptyResponse
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return llm.Response{Usage: usage}, llm.ErrEmptyResponse
	}
	return llm.Response{Text: text.String(), Usage: usage}, nil
}

var _ llm.Backend = (*Backend)(nil)
