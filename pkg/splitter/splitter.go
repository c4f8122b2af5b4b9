// Package splitter divides oversized chunk text into retrieval-sized pieces.
package splitter

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/perbu/scoutrag/pkg/scoutrag"
)

// Strategy selects how an oversized text is divided.
type Strategy int

const (
	// Fixed slices text into SemanticMaxChars windows. It never calls a provider.
	Fixed Strategy = iota
	// Semantic groups sentences by embedding similarity, falling back to
	// Fixed when the provider fails.
	Semantic
)

// minSentenceChars drops fragments such as "Yes." or list markers.
const minSentenceChars = 11

func (s Strategy) String() string {
	switch s {
	case Fixed:
		return "fixed"
	case Semantic:
		return "semantic"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a config value to a Strategy. An empty value is Fixed.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fixed", "":
		return Fixed, nil
	case "semantic":
		return Semantic, nil
	default:
		return Fixed, fmt.Errorf("unknown split strategy %q", name)
	}
}

// PassageEmbedder embeds sentences for the semantic strategy.
type PassageEmbedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

// Splitter applies a Strategy to texts longer than the oversized threshold.
type Splitter struct {
	strategy Strategy
	embedder PassageEmbedder
}

// New creates a splitter. emb may be nil for the Fixed strategy; a Semantic
// splitter without an embedder behaves like Fixed.
func New(strategy Strategy, emb PassageEmbedder) *Splitter {
	return &Splitter{strategy: strategy, embedder: emb}
}

// Strategy returns the configured strategy.
func (s *Splitter) Strategy() Strategy {
	return s.strategy
}

// Oversized reports whether text needs splitting.
func Oversized(text string) bool {
	return utf8.RuneCountInString(text) > 2*scoutrag.SemanticMaxChars
}

// SplitChunks expands every oversized chunk in place order, keeping its source.
func (s *Splitter) SplitChunks(ctx context.Context, chunks []scoutrag.Chunk) []scoutrag.Chunk {
	out := make([]scoutrag.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if !Oversized(c.Text) {
			out = append(out, c)
			continue
		}
		for _, piece := range s.Split(ctx, c.Text) {
			out = append(out, scoutrag.Chunk{Text: piece, Source: c.Source})
		}
	}
	return out
}

// Split divides text with the configured strategy.
func (s *Splitter) Split(ctx context.Context, text string) []string {
	if s.strategy == Semantic && s.embedder != nil {
		return SemanticSplit(ctx, text, s.embedder)
	}
	return FixedSplit(text)
}

// FixedSplit slices text into consecutive SemanticMaxChars-character windows,
// trimming each and dropping the empty ones.
func FixedSplit(text string) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += scoutrag.SemanticMaxChars {
		end := min(start+scoutrag.SemanticMaxChars, len(runes))
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}
	}
	return chunks
}

// SemanticSplit groups consecutive sentences while they stay on topic.
//
// A sentence joins the current chunk when the result stays within
// SemanticMaxChars and either its embedding is at least SemanticThreshold
// similar to the previous sentence or the chunk is still shorter than
// SemanticMinChars. Any provider failure falls back to FixedSplit.
func SemanticSplit(ctx context.Context, text string, emb PassageEmbedder) []string {
	candidates := Sentences(text)
	if len(candidates) <= 1 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	if utf8.RuneCountInString(text) < 2*scoutrag.SemanticMinChars {
		return []string{strings.TrimSpace(text)}
	}

	vectors, err := emb.EmbedPassages(ctx, candidates)
	if err != nil || len(vectors) != len(candidates) {
		return FixedSplit(text)
	}

	var chunks []string
	var current []string
	currentLen := 0
	var prev []float32

	for i, sentence := range candidates {
		n := utf8.RuneCountInString(sentence)
		vec := vectors[i]

		if len(current) == 0 {
			current = []string{sentence}
			currentLen = n
			prev = vec
			continue
		}

		fits := currentLen+n <= scoutrag.SemanticMaxChars
		related := scoutrag.CosineSimilarity(prev, vec) >= scoutrag.SemanticThreshold
		if fits && (related || currentLen < scoutrag.SemanticMinChars) {
			current = append(current, sentence)
			currentLen += n + 1
		} else {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{sentence}
			currentLen = n
		}
		prev = vec
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// Sentences splits text after '.', '!' or '?' followed by whitespace, and at
// blank lines. Fragments of ten characters or fewer are dropped.
func Sentences(text string) []string {
	var out []string
	keep := func(s string) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) >= minSentenceChars {
			out = append(out, s)
		}
	}

	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			keep(string(runes[start : i+1]))
			i = skipSpace(runes, i+1) - 1
			start = i + 1
			continue
		}

		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			keep(string(runes[start:i]))
			for i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		keep(string(runes[start:]))
	}
	return out
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}
