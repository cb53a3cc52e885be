// Package anthropic provides a chat model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/artifactmesh/model"
)

// Options configures the Anthropic chat adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Chat wraps the Anthropic Messages API behind the generic model.ChatModel
// interface.
type Chat struct {
	client *anthropic.Client
	opts   Options
}

var _ model.ChatModel = (*Chat)(nil)

// New creates a new Anthropic chat model using the official client
func New(optFns ...func(o *Options)) *Chat {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Chat{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic chat model from an existing client
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Chat {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Chat{client: client, opts: opts}
}

// Chat implements model.ChatModel via the Messages API.
func (c *Chat) Chat(ctx context.Context, system string, messages []model.Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
		Messages:    buildMessages(messages),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	return text, nil
}

// buildMessages converts the normalized transcript to Anthropic message format.
func buildMessages(messages []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

// Info returns metadata describing this Anthropic chat implementation.
func (c *Chat) Info() model.Info {
	return model.Info{Name: string(c.opts.Model), Provider: "anthropic"}
}
