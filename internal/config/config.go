package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/perbu/scoutrag/pkg/cache"
	"github.com/perbu/scoutrag/pkg/embedder"
	"github.com/perbu/scoutrag/pkg/loader"
	"github.com/perbu/scoutrag/pkg/scoutrag"
	"github.com/perbu/scoutrag/pkg/splitter"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "scout.yaml"

type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model,omitempty"`
	BaseURL           string        `yaml:"base_url,omitempty"`
	APIKey            string        `yaml:"api_key,omitempty"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
}

type Config struct {
	DataDir       string          `yaml:"data_dir"`
	PrebuiltCache string          `yaml:"prebuilt_cache"`
	WorkingCache  string          `yaml:"working_cache"`
	Embedding     EmbeddingConfig `yaml:"embedding"`
	SplitStrategy string          `yaml:"split_strategy"`
	TopK          int             `yaml:"top_k"`
	Listen        string          `yaml:"listen"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:       loader.DefaultDir,
		PrebuiltCache: cache.DefaultPrebuiltPath,
		WorkingCache:  cache.DefaultWorkingPath,
		Embedding: EmbeddingConfig{
			Provider: "jina",
		},
		SplitStrategy: "fixed",
		TopK:          scoutrag.DefaultTopK,
		Listen:        ":8080",
	}
}

// LoadEnv loads .env.local and then .env. Variables already set win, and
// missing files are ignored.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load reads the YAML file at path on top of the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.DataDir, "SCOUT_DATA_DIR")
	setString(&c.PrebuiltCache, "SCOUT_PREBUILT_CACHE")
	setString(&c.WorkingCache, "SCOUT_WORKING_CACHE")
	setString(&c.Embedding.Provider, "SCOUT_EMBEDDING_PROVIDER")
	setString(&c.Listen, "SCOUT_LISTEN")

	if c.Embedding.APIKey == "" {
		switch strings.ToLower(c.Embedding.Provider) {
		case "jina":
			c.Embedding.APIKey = os.Getenv("JINA_API_KEY")
		case "openai":
			c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := c.Strategy(); err != nil {
		return err
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "jina", "openai", "hash":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.TopK < 0 {
		return fmt.Errorf("top_k must not be negative, got %d", c.TopK)
	}
	return nil
}

// Strategy returns the split strategy of the live build.
func (c *Config) Strategy() (splitter.Strategy, error) {
	return splitter.ParseStrategy(c.SplitStrategy)
}

// EmbedderSettings returns the provider settings.
func (c *Config) EmbedderSettings() embedder.Settings {
	return embedder.Settings{
		Provider: c.Embedding.Provider,
		Model:    c.Embedding.Model,
		BaseURL:  c.Embedding.BaseURL,
		APIKey:   c.Embedding.APIKey,
		Timeout:  c.Embedding.Timeout,
	}
}

// APIKeyEnv names the environment variable holding the provider key, or ""
// when the provider needs none.
func (c *Config) APIKeyEnv() string {
	switch strings.ToLower(c.Embedding.Provider) {
	case "jina":
		return "JINA_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
