package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/perbu/scoutrag/internal/config"
	"github.com/perbu/scoutrag/pkg/cache"
	"github.com/perbu/scoutrag/pkg/embedder"
	"github.com/perbu/scoutrag/pkg/knowledge"
	"github.com/perbu/scoutrag/pkg/loader"
	"github.com/spf13/cobra"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	if err := fang.Execute(context.Background(), NewRootCmd(version)); err != nil {
		os.Exit(1)
	}
}

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "generate-cache",
		Short:         "Generate the pre-built retrieval cache",
		Long:          `Chunk every team file, embed the chunks and write the pre-built cache artifact shipped with the team data.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runGenerate,
	}

	cmd.Flags().String("config", config.DefaultPath, "Config file")
	cmd.Flags().String("data-dir", "", "Team data directory (overrides config)")
	cmd.Flags().String("out", "", "Output artifact path (overrides prebuilt_cache)")
	cmd.Flags().Bool("verbose", false, "Enable debug logging")
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	out, _ := cmd.Flags().GetString("out")
	verbose, _ := cmd.Flags().GetBool("verbose")

	config.LoadEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if out != "" {
		cfg.PrebuiltCache = out
	}

	return generate(cmd.Context(), cmd.OutOrStdout(), cfg, newLogger(cmd.ErrOrStderr(), verbose))
}

func generate(ctx context.Context, w io.Writer, cfg *config.Config, logger *slog.Logger) error {
	start := time.Now()

	fmt.Fprintln(w, "Scouting Report Cache Generator")
	fmt.Fprintln(w, "===============================")
	fmt.Fprintln(w)

	if env := cfg.APIKeyEnv(); env != "" && cfg.Embedding.APIKey == "" {
		return fmt.Errorf("%s not set, add it to .env.local, .env or the environment", env)
	}
	if info, err := os.Stat(cfg.DataDir); err != nil || !info.IsDir() {
		return fmt.Errorf("team data directory not found: %s", cfg.DataDir)
	}

	// Step 1: Load team data
	fmt.Fprintln(w, "Step 1: Loading team data...")
	teams, err := loader.NewDirectory(cfg.DataDir, logger).LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load teams: %w", err)
	}
	fingerprint := cache.Fingerprint(teams)
	fmt.Fprintf(w, "  ✓ Loaded %d teams from %s (fingerprint %s)\n\n", len(teams), cfg.DataDir, fingerprint)

	// Step 2: Initialize embedder
	fmt.Fprintln(w, "Step 2: Initializing embedder...")
	provider, err := embedder.New(cfg.EmbedderSettings())
	if err != nil {
		return fmt.Errorf("initializing embedder: %w", err)
	}
	client := embedder.NewClient(provider,
		embedder.WithLogger(logger),
		embedder.WithRequestsPerSecond(cfg.Embedding.RequestsPerSecond),
		embedder.WithProgress(func(batch, batches, size int) {
			fmt.Fprintf(w, "  Embedding batch %d/%d (%d texts)\n", batch, batches, size)
		}),
	)
	fmt.Fprintf(w, "  ✓ Embedder initialized (%s)\n\n", client.ModelInfo())

	// Step 3: Chunk and embed
	fmt.Fprintln(w, "Step 3: Chunking and embedding...")
	builder := &knowledge.Builder{Embedder: client, Recipe: knowledge.RecipeOffline, Logger: logger}
	corpus, err := builder.Build(ctx, teams)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ Embedded %d chunks\n\n", corpus.Len())
	if corpus.Len() == 0 {
		fmt.Fprintln(w, "  ⚠ No chunks produced, the artifact will never be used as a cache hit")
	}

	// Step 4: Save
	fmt.Fprintln(w, "Step 4: Saving cache...")
	manager := cache.NewManager(cfg.PrebuiltCache, "", logger)
	if err := manager.SavePrebuilt(corpus.Fingerprint, corpus.Chunks); err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}

	info, err := os.Stat(cfg.PrebuiltCache)
	if err != nil {
		return fmt.Errorf("stat cache: %w", err)
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	fmt.Fprintf(w, "  ✓ Saved to %s (%.2f MB)\n\n", cfg.PrebuiltCache, sizeMB)

	fmt.Fprintf(w, "Done in %.1fs. Cache hash: %s\n", time.Since(start).Seconds(), corpus.Fingerprint)
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
