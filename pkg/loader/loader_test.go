package loader

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/perbu/scoutrag/pkg/scoutrag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAllTeamDataSkipsMalformed(t *testing.T) {
	fsys := fstest.MapFS{
		"teams/sentinels.json": {Data: []byte(`{"team_name": "Sentinels", "matches_analyzed": 9}`)},
		"teams/broken.json":    {Data: []byte(`{"team_name": "Broken",`)},
		"teams/cloud9.json":    {Data: []byte(`{"team_name": "Cloud9", "matches_analyzed": 14}`)},
		"teams/notes.txt":      {Data: []byte(`not a team`)},
		"teams/nested/x.json":  {Data: []byte(`{"team_name": "Nested"}`)},
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	teams, err := LoadAllTeamData(context.Background(), fsys, "teams", "teams", logger)
	require.NoError(t, err)

	require.Len(t, teams, 2)
	assert.Equal(t, "Cloud9", teams[0].TeamName)
	assert.Equal(t, 14, teams[0].MatchesAnalyzed)
	assert.Equal(t, "Sentinels", teams[1].TeamName)

	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "broken.json")
}

func TestLoadAllTeamDataMissingDirectory(t *testing.T) {
	_, err := LoadAllTeamData(context.Background(), fstest.MapFS{}, "teams", "public/teams", nil)
	require.Error(t, err)

	var dsErr *scoutrag.DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, "public/teams", dsErr.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestDirectoryOnDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "g2.json"), []byte(`{"team_name": "G2", "matches_analyzed": 3}`), 0644))

	teams, err := NewDirectory(dir, nil).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "G2", teams[0].TeamName)

	empty := t.TempDir()
	teams, err = NewDirectory(empty, nil).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, teams)
}
