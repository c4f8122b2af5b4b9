package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/perbu/scoutrag/pkg/scoutrag"
)

const (
	DefaultJinaURL   = "https://api.jina.ai/v1/embeddings"
	DefaultJinaModel = "jina-embeddings-v3"

	// maxErrorBody caps how much of a failed response ends up in the error.
	maxErrorBody = 4096
)

// JinaEmbedder calls the Jina embeddings endpoint.
type JinaEmbedder struct {
	apiKey string
	model  string
	url    string
	client *http.Client
}

type jinaRequest struct {
	Model        string   `json:"model"`
	Task         string   `json:"task"`
	LateChunking bool     `json:"late_chunking"`
	Input        []string `json:"input"`
}

type jinaResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewJinaEmbedder creates a Jina embedder. Empty model and url select the
// defaults; a nil client uses http.DefaultClient.
func NewJinaEmbedder(apiKey, model, url string, client *http.Client) (*JinaEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("JINA_API_KEY not set")
	}
	if model == "" {
		model = DefaultJinaModel
	}
	if url == "" {
		url = DefaultJinaURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &JinaEmbedder{apiKey: apiKey, model: model, url: url, client: client}, nil
}

// EmbedBatch sends one request for all texts.
func (e *JinaEmbedder) EmbedBatch(ctx context.Context, texts []string, task Task) ([][]float32, error) {
	body, err := json.Marshal(jinaRequest{
		Model: e.model,
		Task:  "retrieval." + string(task),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &scoutrag.ProviderError{Provider: "jina", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &scoutrag.ProviderError{
			Provider: "jina",
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(msg)),
		}
	}

	var parsed jinaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &scoutrag.ProviderError{Provider: "jina", Err: fmt.Errorf("decoding response: %w", err)}
	}

	sort.SliceStable(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})
	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// ModelInfo returns model information
func (e *JinaEmbedder) ModelInfo() string {
	return "jina-" + strings.TrimPrefix(e.model, "jina-")
}
