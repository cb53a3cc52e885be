// Package openai provides a chat model wrapper using the OpenAI Chat
// Completions API. It adapts the normalized transcript into the SDK's message
// format and back.
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/artifactmesh/model"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI chat adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Chat wraps the OpenAI Chat Completions API behind the generic
// model.ChatModel interface.
type Chat struct {
	client *openai.Client
	opts   Options
}

var _ model.ChatModel = (*Chat)(nil)

// New creates a new OpenAI chat model using the official client
func New(optFns ...func(o *Options)) *Chat {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI chat model from an existing client
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Chat {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Chat{client: client, opts: opts}
}

// Chat implements model.ChatModel via the Chat Completions API.
func (c *Chat) Chat(ctx context.Context, system string, messages []model.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:               c.opts.Model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
		Messages:            buildMessages(system, messages),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts the normalized transcript into OpenAI chat messages.
func buildMessages(system string, messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// Info returns metadata describing this OpenAI chat implementation.
func (c *Chat) Info() model.Info {
	return model.Info{Name: c.opts.Model, Provider: "openai"}
}
