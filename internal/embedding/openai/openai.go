// Package openai embeds text through an OpenAI-compatible embeddings endpoint.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

// Known dimensions let callers validate indexes before the first remote call.
var modelDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// Config configures the embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Client implements the Embedder port against the OpenAI embeddings API.
type Client struct {
	api       *openai.Client
	model     string
	dimension int
}

// NewClient creates an embeddings client using the provided configuration.
// The API key is read from the configured environment variable.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidInput, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
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
		api:       openai.NewClientWithConfig(cc),
		model:     cfg.Model,
		dimension: modelDimensions[cfg.Model],
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the embedding dimensionality, or 0 for an unknown model
// before the first successful Embed call.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns the embedding vector for the given text. Provider failures
// surface as typed upstream errors, never as a silent zero vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: cannot embed empty text", domain.ErrInvalidInput)
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings request: %v", domain.ErrUpstream, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", domain.ErrUpstream)
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	copy(vec, resp.Data[0].Embedding)
	if c.dimension == 0 {
		c.dimension = len(vec)
	} else if len(vec) != c.dimension {
		return nil, fmt.Errorf("%w: embedding dimension changed from %d to %d", domain.ErrUpstream, c.dimension, len(vec))
	}
	return vec, nil
}
