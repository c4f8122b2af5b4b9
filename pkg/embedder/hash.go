package embedder

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// DefaultHashDimension is the vector size of the hash embedder.
const DefaultHashDimension = 256

// HashEmbedder produces deterministic bag-of-words vectors without any
// external service. Texts sharing words get similar vectors, which is enough
// for offline runs and tests.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder with the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{dim: dimension}
}

// Embed hashes the lowercased words of text into buckets and L2-normalizes
// the result. Text without words yields a zero vector.
func (e *HashEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dim)]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// EmbedBatch implements Embedder. The task does not change the vectors.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string, _ Task) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.dim <= 0 {
		return nil, errors.New("invalid embedding dimension")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.Embed(t)
	}
	return out, nil
}

// Dimension returns the embedding dimension
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *HashEmbedder) ModelInfo() string {
	return "local-fnv-hash-" + strconv.Itoa(e.dim)
}
