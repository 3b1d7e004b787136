// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// Completion is a single model response plus the token usage reported
// by the API, which feeds cost accounting.
type Completion struct {
	Text        string
	TotalTokens int
}

// Completer produces a chat completion from the named model.
type Completer interface {
	Complete(ctx context.Context, model, system, user string) (Completion, error)
}

// OpenAIClient implements Completer using the official openai-go SDK.
type OpenAIClient struct {
	opts []option.RequestOption
}

// NewOpenAIClient builds a client from the generation config. The API
// key is required; the base URL is optional and supports compatible
// gateways.
func NewOpenAIClient(cfg types.AIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &OpenAIClient{opts: opts}, nil
}

// Complete sends one system+user exchange to the model and returns the
// first choice.
func (c *OpenAIClient) Complete(ctx context.Context, model, system, user string) (Completion, error) {
	client := openai.NewClient(c.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion with %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("chat completion with %s: empty choices", model)
	}
	return Completion{
		Text:        resp.Choices[0].Message.Content,
		TotalTokens: int(resp.Usage.TotalTokens),
	}, nil
}
