package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/perbu/scoutrag/pkg/scoutrag"
	"golang.org/x/time/rate"
)

// Task tells the provider whether a vector is for indexing or for a query.
// Both live in the same embedding space.
type Task string

const (
	Passage Task = "passage"
	Query   Task = "query"
)

// Embedder is a remote or local embedding provider. EmbedBatch returns one
// vector per input, in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, task Task) ([][]float32, error)
	ModelInfo() string
}

// Client enforces the provider limits: inputs are truncated to
// MaxInputChars, blank inputs are dropped, and at most BatchSize inputs go
// into one call. Batches are sent one after another.
type Client struct {
	embedder Embedder
	limiter  *rate.Limiter
	logger   *slog.Logger
	progress func(batch, batches, size int)
}

// Option configures a Client.
type Option func(*Client)

// WithRequestsPerSecond paces batch calls. Zero or less means no pacing.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger used for per-batch debug lines.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after each batch with the
// 1-based batch number, the batch count and the batch size.
func WithProgress(fn func(batch, batches, size int)) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// NewClient wraps an embedding provider.
func NewClient(e Embedder, opts ...Option) *Client {
	c := &Client{embedder: e, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelInfo returns the provider's model description.
func (c *Client) ModelInfo() string {
	return c.embedder.ModelInfo()
}

// Prepare truncates every text to MaxInputChars and drops the ones that are
// blank. index[i] is the position in texts of inputs[i].
func Prepare(texts []string) (inputs []string, index []int) {
	for i, t := range texts {
		t = truncate(t, scoutrag.MaxInputChars)
		if strings.TrimSpace(t) == "" {
			continue
		}
		inputs = append(inputs, t)
		index = append(index, i)
	}
	return inputs, index
}

// Embed returns one vector per non-blank input. Blank inputs are filtered out,
// so the result can be shorter than texts; use EmbedAligned to keep positions.
func (c *Client) Embed(ctx context.Context, texts []string, task Task) ([][]float32, error) {
	inputs, _ := Prepare(texts)
	return c.embedInputs(ctx, inputs, task)
}

// EmbedAligned returns a slice parallel to texts. Blank inputs get a nil
// vector.
func (c *Client) EmbedAligned(ctx context.Context, texts []string, task Task) ([][]float32, error) {
	inputs, index := Prepare(texts)
	vectors, err := c.embedInputs(ctx, inputs, task)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, v := range vectors {
		out[index[i]] = v
	}
	return out, nil
}

// EmbedPassages embeds indexing-time texts, keeping positions.
func (c *Client) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	return c.EmbedAligned(ctx, texts, Passage)
}

// EmbedQuery embeds a single retrieval query.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{query}, Query)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty query")
	}
	return vectors[0], nil
}

func (c *Client) embedInputs(ctx context.Context, inputs []string, task Task) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	batches := (len(inputs) + scoutrag.BatchSize - 1) / scoutrag.BatchSize
	out := make([][]float32, 0, len(inputs))

	for start := 0; start < len(inputs); start += scoutrag.BatchSize {
		end := min(start+scoutrag.BatchSize, len(inputs))
		batch := inputs[start:end]
		n := start/scoutrag.BatchSize + 1

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for batch %d: %w", n, err)
			}
		}

		vectors, err := c.embedder.EmbedBatch(ctx, batch, task)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%s returned %d embeddings for %d inputs", c.embedder.ModelInfo(), len(vectors), len(batch))
		}
		out = append(out, vectors...)

		c.logger.DebugContext(ctx, "embedded batch", "batch", n, "batches", batches, "size", len(batch), "task", string(task))
		if c.progress != nil {
			c.progress(n, batches, len(batch))
		}
	}

	return out, nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
