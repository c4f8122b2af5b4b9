// Package cache persists embedded corpora keyed by a fingerprint of the team
// data they were built from.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/perbu/scoutrag/pkg/scoutrag"
)

// Default artifact locations, relative to the working directory.
const (
	DefaultPrebuiltPath = "public/precomputed/rag-cache.json"
	DefaultWorkingPath  = ".cache/rag-embeddings.json"
)

// fingerprintLen is the number of hex characters kept from the digest.
const fingerprintLen = 16

type projection struct {
	Name    string `json:"n"`
	Matches int    `json:"m"`
}

// Fingerprint hashes the (team name, matches analyzed) pairs of teams. The
// result does not depend on the order of teams.
func Fingerprint(teams []scoutrag.TeamRecord) string {
	proj := make([]projection, len(teams))
	for i, t := range teams {
		proj[i] = projection{Name: t.TeamName, Matches: t.MatchesAnalyzed}
	}
	sort.Slice(proj, func(i, j int) bool {
		if proj[i].Name != proj[j].Name {
			return proj[i].Name < proj[j].Name
		}
		return proj[i].Matches < proj[j].Matches
	})

	// Names are hashed as written, without HTML escaping. Encoding a slice
	// of flat structs cannot fail.
	var canonical bytes.Buffer
	enc := json.NewEncoder(&canonical)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(proj)
	sum := sha256.Sum256(bytes.TrimSuffix(canonical.Bytes(), []byte("\n")))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// Manager reads and writes cache artifacts. The pre-built artifact ships with
// the team data and is only written by the offline generator; the working
// artifact belongs to the running process.
type Manager struct {
	prebuilt string
	working  string
	logger   *slog.Logger
}

// NewManager creates a manager. Either path may be empty to disable that
// location.
func NewManager(prebuilt, working string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{prebuilt: prebuilt, working: working, logger: logger}
}

// PrebuiltPath returns the pre-built artifact location.
func (m *Manager) PrebuiltPath() string { return m.prebuilt }

// WorkingPath returns the working artifact location.
func (m *Manager) WorkingPath() string { return m.working }

// Load returns the first artifact, pre-built then working, whose fingerprint
// equals fingerprint and whose chunks all carry an embedding. Anything else
// is a miss.
func (m *Manager) Load(ctx context.Context, fingerprint string) (*scoutrag.CacheArtifact, bool) {
	for _, loc := range []struct{ name, path string }{
		{"prebuilt", m.prebuilt},
		{"working", m.working},
	} {
		if loc.path == "" {
			continue
		}

		artifact, err := readArtifact(loc.path, fingerprint)
		switch {
		case err == nil:
			m.logger.InfoContext(ctx, "cache hit", "location", loc.name, "path", loc.path, "chunks", len(artifact.Chunks))
			return artifact, true
		case errors.Is(err, fs.ErrNotExist):
			m.logger.DebugContext(ctx, "cache absent", "location", loc.name, "path", loc.path)
		case errors.Is(err, scoutrag.ErrCacheMismatch):
			m.logger.InfoContext(ctx, "cache stale", "location", loc.name, "path", loc.path, "error", err)
		default:
			m.logger.WarnContext(ctx, "cache unreadable", "location", loc.name, "path", loc.path, "error", err)
		}
	}
	return nil, false
}

// Save writes the working artifact.
func (m *Manager) Save(fingerprint string, chunks []scoutrag.EmbeddedChunk) error {
	if m.working == "" {
		return errors.New("no working cache location configured")
	}
	return writeArtifact(m.working, fingerprint, chunks)
}

// SavePrebuilt writes the pre-built artifact. Only the offline generator
// calls this.
func (m *Manager) SavePrebuilt(fingerprint string, chunks []scoutrag.EmbeddedChunk) error {
	if m.prebuilt == "" {
		return errors.New("no pre-built cache location configured")
	}
	return writeArtifact(m.prebuilt, fingerprint, chunks)
}

func readArtifact(path, fingerprint string) (*scoutrag.CacheArtifact, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var artifact scoutrag.CacheArtifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if artifact.Fingerprint != fingerprint {
		return nil, fmt.Errorf("%w: have %s, want %s", scoutrag.ErrCacheMismatch, artifact.Fingerprint, fingerprint)
	}
	if len(artifact.Chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks", scoutrag.ErrCacheMismatch)
	}
	for i, c := range artifact.Chunks {
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("%w: chunk %d has no embedding", scoutrag.ErrCacheMismatch, i)
		}
	}

	return &artifact, nil
}

// writeArtifact encodes to a temp file next to path and renames it into place.
func writeArtifact(path, fingerprint string, chunks []scoutrag.EmbeddedChunk) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	if chunks == nil {
		chunks = []scoutrag.EmbeddedChunk{}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(scoutrag.CacheArtifact{Fingerprint: fingerprint, Chunks: chunks}); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming cache: %w", err)
	}
	return nil
}
