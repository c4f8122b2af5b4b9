package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/perbu/scoutrag/pkg/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"SCOUT_DATA_DIR", "SCOUT_PREBUILT_CACHE", "SCOUT_WORKING_CACHE",
		"SCOUT_EMBEDDING_PROVIDER", "SCOUT_LISTEN", "JINA_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "scout.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "public/precomputed/teams", cfg.DataDir)
	assert.Equal(t, "public/precomputed/rag-cache.json", cfg.PrebuiltCache)
	assert.Equal(t, ".cache/rag-embeddings.json", cfg.WorkingCache)
	assert.Equal(t, 5, cfg.TopK)

	s, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, splitter.Fixed, s, "semantic splitting is opt-in")
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "scout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: data/teams
embedding:
  provider: openai
  model: text-embedding-3-large
  base_url: http://localhost:11434/v1
  requests_per_second: 2.5
  timeout: 30s
split_strategy: fixed
top_k: 8
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/teams", cfg.DataDir)
	assert.Equal(t, ".cache/rag-embeddings.json", cfg.WorkingCache, "unset keys keep defaults")
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 2.5, cfg.Embedding.RequestsPerSecond)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 8, cfg.TopK)

	s, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, splitter.Fixed, s)

	settings := cfg.EmbedderSettings()
	assert.Equal(t, "text-embedding-3-large", settings.Model)
	assert.Equal(t, 30*time.Second, settings.Timeout)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCOUT_DATA_DIR", "/srv/teams")
	t.Setenv("SCOUT_LISTEN", ":9090")
	t.Setenv("JINA_API_KEY", "jina-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/teams", cfg.DataDir)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "jina-key", cfg.Embedding.APIKey)
	assert.Equal(t, "JINA_API_KEY", cfg.APIKeyEnv())

	t.Setenv("SCOUT_EMBEDDING_PROVIDER", "openai")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai-key", cfg.Embedding.APIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	for name, body := range map[string]string{
		"bad yaml":     "data_dir: [",
		"bad strategy": "split_strategy: paragraphs",
		"bad provider": "embedding:\n  provider: cohere",
		"negative k":   "top_k: -1",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that exists, even when empty.
	os.Unsetenv("JINA_API_KEY")
	os.Unsetenv("SCOUT_LISTEN")
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(local, []byte("JINA_API_KEY=from-local\n"), 0644))
	require.NoError(t, os.WriteFile(shared, []byte("JINA_API_KEY=from-env\nSCOUT_LISTEN=:7070\n"), 0644))

	LoadEnv(local, shared, filepath.Join(dir, "missing"))

	assert.Equal(t, "from-local", os.Getenv("JINA_API_KEY"))
	assert.Equal(t, ":7070", os.Getenv("SCOUT_LISTEN"))
}
