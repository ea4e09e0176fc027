package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"docqa/internal/domain"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// ChunkerConfig configures how extracted text is split into passages.
// Sizes are in characters; Overlap must be strictly less than TargetSize.
type ChunkerConfig struct {
	TargetSize int `yaml:"target_size"`
	Overlap    int `yaml:"overlap"`
}

// OpenAIConfig holds connection details for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// LLMConfig selects and configures the answering model provider.
type LLMConfig struct {
	Type        string        `yaml:"type"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
}

// RetrieverConfig configures similarity retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// PreviewConfig configures the session preview summarizer.
type PreviewConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	LLM       LLMConfig       `yaml:"llm"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Preview   PreviewConfig   `yaml:"preview"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults. Configuration errors are reported here, not at call time.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and
// returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	if c.Chunker.TargetSize <= 0 {
		return fmt.Errorf("%w: chunker target_size must be positive", domain.ErrInvalidInput)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.TargetSize {
		return fmt.Errorf("%w: chunker overlap must be in [0, target_size)", domain.ErrInvalidInput)
	}
	if c.Retriever.TopK < 1 {
		return fmt.Errorf("%w: retriever top_k must be positive", domain.ErrInvalidInput)
	}
	switch c.Embedder.Type {
	case "openai", "hashing":
	default:
		return fmt.Errorf("%w: unknown embedder type %q", domain.ErrInvalidInput, c.Embedder.Type)
	}
	switch c.LLM.Type {
	case "openai":
	default:
		return fmt.Errorf("%w: unknown llm type %q", domain.ErrInvalidInput, c.LLM.Type)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "sessions"
	}
	if cfg.Chunker.TargetSize == 0 {
		cfg.Chunker.TargetSize = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 200
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 6
	}
	if cfg.Preview.MaxSentences == 0 {
		cfg.Preview.MaxSentences = 3
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}
	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "openai"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if cfg.LLM.Type == "openai" {
		if cfg.LLM.OpenAI == nil {
			cfg.LLM.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.LLM.OpenAI, "gpt-4o-mini")
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 30
	}
}
