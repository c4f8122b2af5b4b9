package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/perbu/scoutrag/pkg/cache"
	"github.com/perbu/scoutrag/pkg/scoutrag"
	"github.com/perbu/scoutrag/pkg/splitter"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle of the knowledge base.
type State int32

const (
	Uninitialized State = iota
	Building
	Built
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Building:
		return "building"
	case Built:
		return "built"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// TeamSource lists all team records. loader.Directory implements it.
type TeamSource interface {
	LoadAll(ctx context.Context) ([]scoutrag.TeamRecord, error)
}

// Options configures a Service.
type Options struct {
	Source TeamSource
	// Cache may be nil to always build from scratch.
	Cache *cache.Manager
	// Embedder may be nil; the corpus then has no embeddings and every query
	// uses keyword search.
	Embedder Embedder
	Strategy splitter.Strategy
	TopK     int
	Logger   *slog.Logger
}

// Service owns the process-wide corpus.
//
// The corpus moves Uninitialized -> Building -> Built. The first caller that
// needs it starts the build and every concurrent caller waits for that same
// build. A started build is never cancelled, even when the caller that
// started it goes away. Once built, the corpus is read-only and is replaced
// wholesale by Refresh.
type Service struct {
	source   TeamSource
	cache    *cache.Manager
	embedder Embedder
	builder  *Builder
	topK     int
	logger   *slog.Logger

	group  singleflight.Group
	state  atomic.Int32
	corpus atomic.Pointer[scoutrag.Corpus]
}

// Status is a snapshot of the service for operators.
type Status struct {
	State       string `json:"state"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Chunks      int    `json:"chunks"`
	Embedded    int    `json:"embedded"`
}

// New creates a service. Nothing is loaded until the corpus is first needed.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = scoutrag.DefaultTopK
	}
	return &Service{
		source:   opts.Source,
		cache:    opts.Cache,
		embedder: opts.Embedder,
		builder: &Builder{
			Embedder: opts.Embedder,
			Recipe:   RecipeLive,
			Strategy: opts.Strategy,
			Logger:   logger,
		},
		topK:   topK,
		logger: logger,
	}
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Status returns the state and the size of the current corpus.
func (s *Service) Status() Status {
	c := s.corpus.Load()
	st := Status{State: s.State().String(), Chunks: c.Len(), Embedded: c.Embedded()}
	if c != nil {
		st.Fingerprint = c.Fingerprint
	}
	return st
}

// Corpus returns the built corpus, building it first if needed. If ctx ends
// while waiting, Corpus returns ctx.Err() and the build carries on.
func (s *Service) Corpus(ctx context.Context) (*scoutrag.Corpus, error) {
	if c := s.corpus.Load(); c != nil {
		return c, nil
	}
	return s.run(ctx, false)
}

// Refresh reloads the team data and rebuilds the corpus if its fingerprint
// no longer matches. It reports whether the corpus was replaced.
func (s *Service) Refresh(ctx context.Context) (bool, error) {
	teams, err := s.source.LoadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("load teams: %w", err)
	}

	fp := cache.Fingerprint(teams)
	current := s.corpus.Load()
	if current != nil && current.Fingerprint == fp {
		return false, nil
	}

	c, err := s.run(ctx, true)
	if err != nil {
		return false, err
	}
	return current == nil || c.Fingerprint != current.Fingerprint, nil
}

// run coordinates builds through a single in-flight call. force rebuilds
// even if a corpus exists.
func (s *Service) run(ctx context.Context, force bool) (*scoutrag.Corpus, error) {
	ch := s.group.DoChan("build", func() (any, error) {
		prev := s.corpus.Load()
		if prev != nil && !force {
			return prev, nil
		}
		if prev == nil {
			s.state.Store(int32(Building))
		}

		c, err := s.build(context.WithoutCancel(ctx))
		if err != nil {
			if prev == nil {
				s.state.Store(int32(Uninitialized))
			}
			return nil, err
		}

		s.corpus.Store(c)
		s.state.Store(int32(Built))
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*scoutrag.Corpus), nil
	}
}

func (s *Service) build(ctx context.Context) (*scoutrag.Corpus, error) {
	teams, err := s.source.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}

	fp := cache.Fingerprint(teams)
	if len(teams) == 0 {
		s.logger.WarnContext(ctx, "no team data, corpus is empty")
		return &scoutrag.Corpus{Fingerprint: fp}, nil
	}

	if s.cache != nil {
		if artifact, ok := s.cache.Load(ctx, fp); ok {
			return &scoutrag.Corpus{Fingerprint: fp, Chunks: artifact.Chunks}, nil
		}
	}

	c, err := s.builder.Build(ctx, teams)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && c.Len() > 0 {
		if err := s.cache.Save(fp, c.Chunks); err != nil {
			s.logger.WarnContext(ctx, "saving cache failed", "path", s.cache.WorkingPath(), "error", err)
		}
	}
	return c, nil
}
