// Package gemini implements llm.Completer on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

// New connects a Gemini client. Extra client options are applied after the
// API key.
func New(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete generates a single deterministic reply.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(0)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return textFrom(resp)
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func textFrom(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", errors.New("gemini candidate has no content")
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("gemini reply has no text")
	}
	return out, nil
}
