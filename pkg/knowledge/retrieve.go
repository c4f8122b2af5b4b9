package knowledge

import (
	"context"
	"strings"
	"sync"

	"github.com/perbu/scoutrag/pkg/scoutrag"
)

// contextSeparator separates passages in a prompt context block.
const contextSeparator = "\n\n---\n\n"

// Search ranks the corpus against query, building it first if needed. A k of
// zero or less means the configured default. Semantic scoring is used when
// the corpus has embeddings and the query can be embedded; otherwise keyword
// scoring.
func (s *Service) Search(ctx context.Context, query string, k int, team string) ([]scoutrag.SearchResult, error) {
	if k <= 0 {
		k = s.topK
	}

	corpus, err := s.Corpus(ctx)
	if err != nil {
		return nil, err
	}

	if corpus.HasEmbeddings() && s.embedder != nil {
		vec, err := s.embedder.EmbedQuery(ctx, query)
		if err == nil {
			return scoutrag.Search(corpus.Chunks, vec, k, team), nil
		}
		s.logger.WarnContext(ctx, "query embedding failed, using keyword search", "error", err)
	}

	return scoutrag.KeywordSearch(corpus.Chunks, query, k, team), nil
}

// Retrieve returns the texts of the top-k passages for query, most relevant
// first. team is a soft source filter.
func (s *Service) Retrieve(ctx context.Context, query string, k int, team string) ([]string, error) {
	results, err := s.Search(ctx, query, k, team)
	if err != nil {
		return nil, err
	}
	return scoutrag.Texts(results), nil
}

// RetrieveContext is Retrieve for the chat call site: failures are logged and
// answered with no passages.
func (s *Service) RetrieveContext(ctx context.Context, query string, k int, team string) []string {
	passages, err := s.Retrieve(ctx, query, k, team)
	if err != nil {
		s.logger.WarnContext(ctx, "retrieval failed", "error", err)
		return nil
	}
	return passages
}

// FormatContext joins passages into the context block handed to the chat
// model.
func FormatContext(passages []string) string {
	return strings.Join(passages, contextSeparator)
}

// Shared holds the process-wide Service. The API key of the first caller
// configures its embedding provider; keys passed by later callers are
// ignored, so every caller shares one corpus and one build.
type Shared struct {
	once    sync.Once
	svc     *Service
	factory func(apiKey string) *Service
}

// NewShared creates a holder that builds its service with factory on first
// use.
func NewShared(factory func(apiKey string) *Service) *Shared {
	return &Shared{factory: factory}
}

// Service returns the shared service, creating it with apiKey on first use.
func (s *Shared) Service(apiKey string) *Service {
	s.once.Do(func() {
		s.svc = s.factory(apiKey)
	})
	return s.svc
}

// RetrieveContext retrieves through the shared service.
func (s *Shared) RetrieveContext(ctx context.Context, query, apiKey string, k int, team string) []string {
	return s.Service(apiKey).RetrieveContext(ctx, query, k, team)
}
