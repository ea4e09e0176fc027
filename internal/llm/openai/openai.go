// Package openai invokes the answering model through an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

// Config configures the chat completions client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client implements the CompletionProvider port.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClient creates a chat completions client using the provided
// configuration. The API key is read from the configured environment variable.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidInput, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	cc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	cc.HTTPClient = &http.Client{Timeout: t}
	return &Client{
		api:         openai.NewClientWithConfig(cc),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete sends the prompt and returns the model's raw output. Transport and
// quota failures surface as typed upstream errors.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", domain.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", domain.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}
