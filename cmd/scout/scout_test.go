package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/perbu/scoutrag/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cloud9Team = `{"team_name": "Cloud9", "matches_analyzed": 14,
		"metrics": {"win_rate": 57.1},
		"insights": {"attack": "Cloud9 default into a late B split on Lotus."}}`
	sentinelsTeam = `{"team_name": "Sentinels", "matches_analyzed": 9,
		"insights": {"economy": "Sentinels force buy after losing the pistol round."}}`
)

// workspace writes team files and a config using the hash provider, and
// returns the config path and the data directory.
func workspace(t *testing.T) (string, string) {
	t.Helper()
	for _, key := range []string{
		"SCOUT_DATA_DIR", "SCOUT_PREBUILT_CACHE", "SCOUT_WORKING_CACHE",
		"SCOUT_EMBEDDING_PROVIDER", "SCOUT_LISTEN",
	} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	data := filepath.Join(dir, "teams")
	require.NoError(t, os.MkdirAll(data, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "cloud9.json"), []byte(cloud9Team), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(data, "sentinels.json"), []byte(sentinelsTeam), 0644))

	cfgPath := filepath.Join(dir, "scout.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"data_dir: "+data+"\n"+
			"prebuilt_cache: "+filepath.Join(dir, "prebuilt.json")+"\n"+
			"working_cache: "+filepath.Join(dir, ".cache", "rag-embeddings.json")+"\n"+
			"embedding:\n  provider: hash\n"), 0644))
	return cfgPath, data
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestQueryCommand(t *testing.T) {
	cfgPath, _ := workspace(t)

	out := run(t, "query", "--config", cfgPath, "-n", "1", "Sentinels", "force", "buy", "pistol")
	assert.Equal(t, "Sentinels economy Scouting Report:\nSentinels force buy after losing the pistol round.\n", out)

	out = run(t, "query", "--config", cfgPath, "--json", "-n", "2", "--team", "cloud9", "win rate")
	assert.Equal(t, 2, strings.Count(out, `"source": "Cloud9"`))
}

func TestBuildAndFingerprintCommands(t *testing.T) {
	cfgPath, _ := workspace(t)

	out := run(t, "build", "--config", cfgPath)
	assert.Contains(t, out, "State:       built")
	assert.Contains(t, out, "Chunks:      3 (3 embedded)")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, cfg.WorkingCache)

	fp := strings.TrimSpace(run(t, "fingerprint", "--config", cfgPath))
	assert.Len(t, fp, 16)
	assert.Contains(t, out, "Fingerprint: "+fp)
}

func TestWatchTeamsRebuildsOnChange(t *testing.T) {
	cfgPath, data := workspace(t)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	svc, err := newService(cfg, newLogger(io.Discard, false))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = svc.Corpus(ctx)
	require.NoError(t, err)
	before := svc.Status().Fingerprint

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()
	require.NoError(t, watcher.Add(data))
	go watchTeams(ctx, watcher, 10*time.Millisecond, svc, func(string, ...any) {})

	require.NoError(t, os.WriteFile(filepath.Join(data, "g2.json"), []byte(`{"team_name": "G2", "matches_analyzed": 3,
		"insights": {"defense": "G2 stack A on Bind."}}`), 0644))

	require.Eventually(t, func() bool {
		return svc.Status().Fingerprint != before
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 4, svc.Status().Chunks)
}

func TestShouldIgnoreEvent(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write team file", fsnotify.Event{Name: "/data/teams/cloud9.json", Op: fsnotify.Write}, false},
		{"create team file", fsnotify.Event{Name: "/data/teams/g2.json", Op: fsnotify.Create}, false},
		{"remove team file", fsnotify.Event{Name: "/data/teams/g2.json", Op: fsnotify.Remove}, false},
		{"chmod ignored", fsnotify.Event{Name: "/data/teams/cloud9.json", Op: fsnotify.Chmod}, true},
		{"non json ignored", fsnotify.Event{Name: "/data/teams/notes.txt", Op: fsnotify.Write}, true},
		{"hidden temp file ignored", fsnotify.Event{Name: "/data/teams/.cloud9.json.swp", Op: fsnotify.Write}, true},
		{"backup file ignored", fsnotify.Event{Name: "/data/teams/cloud9.json~", Op: fsnotify.Write}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIgnoreEvent(tt.event))
		})
	}
}
