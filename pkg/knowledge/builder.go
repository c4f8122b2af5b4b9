// Package knowledge builds the embedded team corpus and answers retrieval
// queries against it.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/perbu/scoutrag/pkg/cache"
	"github.com/perbu/scoutrag/pkg/loader"
	"github.com/perbu/scoutrag/pkg/scoutrag"
	"github.com/perbu/scoutrag/pkg/splitter"
)

// Embedder is the part of the embedding client the knowledge base needs.
// embedder.Client implements it.
type Embedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Recipe selects how a corpus is built.
type Recipe int

const (
	// RecipeLive is used by the serving process. Oversized chunks go through
	// the configured split strategy, and a provider failure yields a corpus
	// without embeddings.
	RecipeLive Recipe = iota
	// RecipeOffline is used by the cache generator. Oversized chunks are
	// always split with the fixed strategy, and a provider failure is an
	// error.
	RecipeOffline
)

func (r Recipe) String() string {
	if r == RecipeOffline {
		return "offline"
	}
	return "live"
}

// Builder turns team records into an embedded corpus.
type Builder struct {
	Embedder Embedder
	Recipe   Recipe
	// Strategy applies to RecipeLive only.
	Strategy splitter.Strategy
	Logger   *slog.Logger
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// failFast passes passage calls through until the first failure. After that
// every call returns the same error without reaching the provider.
type failFast struct {
	inner Embedder

	mu  sync.Mutex
	err error
}

func (f *failFast) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	vectors, err := f.inner.EmbedPassages(ctx, texts)
	if err != nil {
		f.err = err
	}
	return vectors, err
}

// passages returns the embedder for one build, or nil when none is
// configured.
func (b *Builder) passages() splitter.PassageEmbedder {
	if b.Embedder == nil {
		return nil
	}
	return &failFast{inner: b.Embedder}
}

func (b *Builder) splitter(emb splitter.PassageEmbedder) *splitter.Splitter {
	if b.Recipe == RecipeOffline || emb == nil {
		return splitter.New(splitter.Fixed, nil)
	}
	return splitter.New(b.Strategy, emb)
}

// Chunks runs the chunker over every team and splits oversized chunks.
func (b *Builder) Chunks(ctx context.Context, teams []scoutrag.TeamRecord) []scoutrag.Chunk {
	return b.chunks(ctx, teams, b.passages())
}

func (b *Builder) chunks(ctx context.Context, teams []scoutrag.TeamRecord, emb splitter.PassageEmbedder) []scoutrag.Chunk {
	var chunks []scoutrag.Chunk
	for _, team := range teams {
		chunks = append(chunks, loader.ChunkTeam(team)...)
	}
	return b.splitter(emb).SplitChunks(ctx, chunks)
}

// Build chunks and embeds teams. The corpus fingerprint is computed from
// teams. Once a provider call fails, the provider is not called again for
// the rest of the build: remaining oversized chunks get the fixed split and
// the passage embedding fails immediately.
func (b *Builder) Build(ctx context.Context, teams []scoutrag.TeamRecord) (*scoutrag.Corpus, error) {
	corpus := &scoutrag.Corpus{Fingerprint: cache.Fingerprint(teams)}

	emb := b.passages()
	chunks := b.chunks(ctx, teams, emb)
	if len(chunks) == 0 {
		return corpus, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embed(ctx, emb, texts)
	if err != nil {
		if b.Recipe == RecipeOffline {
			return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
		}
		b.logger().WarnContext(ctx, "embedding failed, corpus will use keyword search", "chunks", len(chunks), "error", err)
		vectors = nil
	}

	corpus.Chunks = make([]scoutrag.EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		emb := []float32{}
		if i < len(vectors) && vectors[i] != nil {
			emb = vectors[i]
		}
		corpus.Chunks[i] = scoutrag.EmbeddedChunk{Text: c.Text, Source: c.Source, Embedding: emb}
	}

	b.logger().InfoContext(ctx, "corpus built",
		"recipe", b.Recipe.String(),
		"teams", len(teams),
		"chunks", corpus.Len(),
		"embedded", corpus.Embedded(),
		"fingerprint", corpus.Fingerprint)
	return corpus, nil
}

func embed(ctx context.Context, emb splitter.PassageEmbedder, texts []string) ([][]float32, error) {
	if emb == nil {
		return nil, errors.New("no embedding provider configured")
	}
	vectors, err := emb.EmbedPassages(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(texts))
	}
	return vectors, nil
}
