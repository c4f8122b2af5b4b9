package knowledge

import (
	"context"

	"github.com/perbu/scoutrag/pkg/cache"
	"github.com/perbu/scoutrag/pkg/embedder"
	"github.com/perbu/scoutrag/pkg/loader"
	"github.com/perbu/scoutrag/pkg/splitter"
)

var shared = NewShared(func(apiKey string) *Service {
	return New(DefaultOptions(apiKey))
})

// DefaultOptions reads team files from loader.DefaultDir, uses the default
// cache locations and embeds with Jina. Without a usable apiKey the service
// runs on keyword search alone.
func DefaultOptions(apiKey string) Options {
	opts := Options{
		Source:   loader.NewDirectory(loader.DefaultDir, nil),
		Cache:    cache.NewManager(cache.DefaultPrebuiltPath, cache.DefaultWorkingPath, nil),
		Strategy: splitter.Fixed,
	}
	if e, err := embedder.NewJinaEmbedder(apiKey, "", "", nil); err == nil {
		opts.Embedder = embedder.NewClient(e)
	}
	return opts
}

// RetrieveContext returns up to k passages for query from the process-wide
// knowledge base. The first call's apiKey selects the embedding provider for
// the life of the process. teamFilter is a soft preference for one team's
// passages. It never fails: retrieval problems yield fewer or no passages.
func RetrieveContext(ctx context.Context, query, apiKey string, k int, teamFilter string) []string {
	return shared.RetrieveContext(ctx, query, apiKey, k, teamFilter)
}
