package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/perbu/scoutrag/internal/server"
	"github.com/perbu/scoutrag/pkg/knowledge"
	"github.com/spf13/cobra"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve retrieval over HTTP",
		Long:  `Serve /retrieve, /status and /health. With --watch, team file changes trigger a rebuild when the fingerprint changes.`,
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "Listen address (overrides config)")
	cmd.Flags().Bool("watch", false, "Watch the team data directory")
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Debounce window for batching changes")
	cmd.Flags().Bool("eager", false, "Build the knowledge base before serving")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	watch, _ := cmd.Flags().GetBool("watch")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	eager, _ := cmd.Flags().GetBool("eager")

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if listen == "" {
		listen = a.cfg.Listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if eager {
		if _, err := a.svc.Corpus(ctx); err != nil {
			return fmt.Errorf("build: %w", err)
		}
	}

	if watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := watcher.Add(a.cfg.DataDir); err != nil {
			return fmt.Errorf("watch %s: %w", a.cfg.DataDir, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes...\n", a.cfg.DataDir)

		go watchTeams(ctx, watcher, debounce, a.svc, func(format string, args ...any) {
			fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Server running on http://localhost%s\n", listen)
	return server.New(a.svc, a.logger).Run(ctx, listen)
}

// watchTeams refreshes the knowledge base once events on team files have
// been quiet for the debounce window.
func watchTeams(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, svc *knowledge.Service, logf func(string, ...any)) {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if shouldIgnoreEvent(event) {
				continue
			}
			if !pending {
				timer.Reset(debounce)
				pending = true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logf("watch error: %v\n", err)
		case <-timer.C:
			pending = false
			changed, err := svc.Refresh(ctx)
			if err != nil {
				logf("refresh failed: %v\n", err)
				continue
			}
			if changed {
				st := svc.Status()
				logf("knowledge base rebuilt: %d chunks, fingerprint %s\n", st.Chunks, st.Fingerprint)
			}
		}
	}
}

// shouldIgnoreEvent drops events that cannot change the team data: chmod,
// non-JSON files and editor temp files.
func shouldIgnoreEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return true
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return true
	}
	return filepath.Ext(base) != ".json"
}
