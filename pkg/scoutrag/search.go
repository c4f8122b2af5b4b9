package scoutrag

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// SearchResult is a scored chunk. Index is the chunk's position in the corpus.
type SearchResult struct {
	Chunk EmbeddedChunk
	Index int
	Score float64
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Vectors of different length or with zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Search scores every embedded chunk against the query embedding and returns
// the top-k, highest first. Ties keep corpus order.
//
// sourceFilter is a soft preference: when fewer than k embedded chunks match
// it, the whole corpus is scored instead.
func Search(chunks []EmbeddedChunk, query []float32, k int, sourceFilter string) []SearchResult {
	candidates := make([]int, 0, len(chunks))
	for i, ch := range chunks {
		if len(ch.Embedding) > 0 {
			candidates = append(candidates, i)
		}
	}
	candidates = preferSource(chunks, candidates, sourceFilter, k)

	results := make([]SearchResult, 0, len(candidates))
	for _, i := range candidates {
		results = append(results, SearchResult{
			Chunk: chunks[i],
			Index: i,
			Score: CosineSimilarity(query, chunks[i].Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return topK(results, k)
}

// KeywordSearch is the lexical fallback. Each query word longer than two
// characters contributes its number of occurrences in the lowercased chunk
// text. Chunks scoring zero are never returned.
func KeywordSearch(chunks []EmbeddedChunk, query string, k int, sourceFilter string) []SearchResult {
	patterns := queryPatterns(query)
	if len(patterns) == 0 {
		return nil
	}

	candidates := make([]int, len(chunks))
	for i := range chunks {
		candidates[i] = i
	}
	candidates = preferSource(chunks, candidates, sourceFilter, k)

	results := make([]SearchResult, 0, len(candidates))
	for _, i := range candidates {
		lower := strings.ToLower(chunks[i].Text)
		score := 0
		for _, re := range patterns {
			score += len(re.FindAllStringIndex(lower, -1))
		}
		if score == 0 {
			continue
		}
		results = append(results, SearchResult{
			Chunk: chunks[i],
			Index: i,
			Score: float64(score),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return topK(results, k)
}

// Texts returns the chunk texts of results in order.
func Texts(results []SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.Text
	}
	return out
}

// MatchesSource reports whether source contains filter, ignoring case.
func MatchesSource(source, filter string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(source), fold.String(filter))
}

// preferSource narrows candidates to the ones whose source matches filter,
// unless that leaves fewer than k of them.
func preferSource(chunks []EmbeddedChunk, candidates []int, filter string, k int) []int {
	if filter == "" {
		return candidates
	}

	fold := cases.Fold()
	want := fold.String(filter)

	filtered := make([]int, 0, len(candidates))
	for _, i := range candidates {
		if strings.Contains(fold.String(chunks[i].Source), want) {
			filtered = append(filtered, i)
		}
	}

	if len(filtered) < k {
		return candidates
	}
	return filtered
}

func queryPatterns(query string) []*regexp.Regexp {
	var patterns []*regexp.Regexp
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(regexp.QuoteMeta(w)))
	}
	return patterns
}

func topK(results []SearchResult, k int) []SearchResult {
	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results
}
