package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultMaxTokens bounds a single completion.
const DefaultMaxTokens = 1024

// Client implements llm.Completer for the Claude Messages API.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a new Claude client with the given API key and model name.
// Extra request options are applied after the key.
func New(apiKey, model string, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: DefaultMaxTokens,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends one user turn with a system prompt and returns the joined
// text blocks of the reply.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	text := textOf(msg)
	if text == "" {
		return "", errors.New("claude reply has no text content")
	}
	return text, nil
}

// textOf concatenates the text blocks of msg.
func textOf(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
