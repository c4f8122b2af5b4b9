package embedder

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Settings selects and configures an embedding provider.
type Settings struct {
	Provider string // jina, openai or hash
	Model    string
	BaseURL  string
	APIKey   string
	// Timeout bounds each provider request. Zero leaves the transport default.
	Timeout time.Duration
}

// New builds the provider named in s.
func New(s Settings) (Embedder, error) {
	var client *http.Client
	if s.Timeout > 0 {
		client = &http.Client{Timeout: s.Timeout}
	}

	switch strings.ToLower(s.Provider) {
	case "jina", "":
		return NewJinaEmbedder(s.APIKey, s.Model, s.BaseURL, client)
	case "openai":
		return NewOpenAIEmbedder(s.APIKey, s.Model, s.BaseURL, client)
	case "hash":
		return NewHashEmbedder(DefaultHashDimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", s.Provider)
	}
}
