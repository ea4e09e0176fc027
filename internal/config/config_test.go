package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sessions", cfg.Store.Dir)
	assert.Equal(t, 1000, cfg.Chunker.TargetSize)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, 6, cfg.Retriever.TopK)
	assert.Equal(t, 3, cfg.Preview.MaxSentences)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	require.NotNil(t, cfg.LLM.OpenAI)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server:\n  addr: \":9090\"\nembedder:\n  type: hashing\nretriever:\n  top_k: 4\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Nil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, 4, cfg.Retriever.TopK)
	assert.Equal(t, 1000, cfg.Chunker.TargetSize)
	assert.Equal(t, "openai", cfg.LLM.Type)
	require.NotNil(t, cfg.LLM.OpenAI)
	assert.Equal(t, 30, cfg.LLM.OpenAI.TimeoutSecs)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"overlap at target", "chunker:\n  target_size: 100\n  overlap: 100\n"},
		{"negative overlap", "chunker:\n  overlap: -1\n"},
		{"negative top_k", "retriever:\n  top_k: -2\n"},
		{"unknown embedder", "embedder:\n  type: word2vec\n"},
		{"unknown llm", "llm:\n  type: anthropic\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o644))

			_, err := Load(path)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [broken\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Server.Addr = ":7070"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", loaded.Server.Addr)
	assert.Equal(t, cfg.Chunker.TargetSize, loaded.Chunker.TargetSize)
}
