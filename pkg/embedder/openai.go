package embedder

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/perbu/scoutrag/pkg/scoutrag"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder uses the OpenAI embeddings API, or any server speaking it.
// The API has no task conditioning, so passage and query vectors are
// produced the same way.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an OpenAI embedder. An empty baseURL keeps the
// public endpoint; a nil httpClient keeps the library default.
func NewOpenAIEmbedder(apiKey, model, baseURL string, httpClient *http.Client) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// EmbedBatch sends one request for all texts.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string, _ Task) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, providerError(err)
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})

	out := make([][]float32, len(data))
	for i, d := range data {
		v := make([]float32, len(d.Embedding))
		for j := range d.Embedding {
			v[j] = float32(d.Embedding[j])
		}
		out[i] = v
	}
	return out, nil
}

// ModelInfo returns model information
func (e *OpenAIEmbedder) ModelInfo() string {
	return "openai-" + e.model
}

func providerError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &scoutrag.ProviderError{Provider: "openai", Status: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &scoutrag.ProviderError{Provider: "openai", Status: reqErr.HTTPStatusCode, Body: reqErr.Error(), Err: err}
	}
	return &scoutrag.ProviderError{Provider: "openai", Err: err}
}
