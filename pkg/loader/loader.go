package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/perbu/scoutrag/pkg/scoutrag"
)

// DefaultDir is where the analysis pipeline writes team files.
const DefaultDir = "public/precomputed/teams"

// Directory is a read-only store of team records, one JSON file per team.
type Directory struct {
	fsys   fs.FS
	root   string
	label  string
	logger *slog.Logger
}

// NewDirectory reads team files from a directory on disk.
func NewDirectory(dir string, logger *slog.Logger) *Directory {
	return NewFSDirectory(os.DirFS(dir), ".", dir, logger)
}

// NewFSDirectory reads team files from root inside fsys. label names the
// location in errors and log lines.
func NewFSDirectory(fsys fs.FS, root, label string, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	if label == "" {
		label = root
	}
	return &Directory{fsys: fsys, root: root, label: label, logger: logger}
}

// LoadAll implements the team source used by the knowledge base.
func (d *Directory) LoadAll(ctx context.Context) ([]scoutrag.TeamRecord, error) {
	return LoadAllTeamData(ctx, d.fsys, d.root, d.label, d.logger)
}

// LoadAllTeamData reads every *.json file directly under root, in file name
// order. An unreadable directory is a DataSourceError; a file that cannot be
// read or parsed is logged and skipped.
func LoadAllTeamData(ctx context.Context, fsys fs.FS, root, label string, logger *slog.Logger) ([]scoutrag.TeamRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, &scoutrag.DataSourceError{Path: label, Err: err}
	}

	var teams []scoutrag.TeamRecord
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		team, err := readTeam(fsys, path.Join(root, entry.Name()))
		if err != nil {
			logger.WarnContext(ctx, "skipping team file", "file", entry.Name(), "error", err)
			continue
		}
		teams = append(teams, team)
	}

	return teams, nil
}

func readTeam(fsys fs.FS, name string) (scoutrag.TeamRecord, error) {
	var team scoutrag.TeamRecord

	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return team, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(content, &team); err != nil {
		return team, fmt.Errorf("parsing %s: %w", name, err)
	}
	return team, nil
}
