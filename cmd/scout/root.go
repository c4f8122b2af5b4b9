package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/perbu/scoutrag/internal/config"
	"github.com/perbu/scoutrag/pkg/cache"
	"github.com/perbu/scoutrag/pkg/embedder"
	"github.com/perbu/scoutrag/pkg/knowledge"
	"github.com/perbu/scoutrag/pkg/loader"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scout",
		Short:         "Retrieval over esports scouting data",
		Long:          `Build the team knowledge base and retrieve scouting passages for the chat assistant.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Team data directory (overrides config)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(
		NewQueryCmd(),
		NewBuildCmd(),
		NewServeCmd(),
		NewFingerprintCmd(),
	)
	return rootCmd
}

// app is the wiring shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	svc    *knowledge.Service
}

func loadApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	verbose, _ := cmd.Flags().GetBool("verbose")

	config.LoadEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	logger := newLogger(cmd.ErrOrStderr(), verbose)
	svc, err := newService(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, svc: svc}, nil
}

// newService wires the live knowledge base. A provider that cannot be
// created leaves the service on keyword search.
func newService(cfg *config.Config, logger *slog.Logger) (*knowledge.Service, error) {
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}

	opts := knowledge.Options{
		Source:   loader.NewDirectory(cfg.DataDir, logger),
		Cache:    cache.NewManager(cfg.PrebuiltCache, cfg.WorkingCache, logger),
		Strategy: strategy,
		TopK:     cfg.TopK,
		Logger:   logger,
	}

	provider, err := embedder.New(cfg.EmbedderSettings())
	if err != nil {
		logger.Warn("embedding provider unavailable, using keyword search", "provider", cfg.Embedding.Provider, "error", err)
	} else {
		opts.Embedder = embedder.NewClient(provider,
			embedder.WithLogger(logger),
			embedder.WithRequestsPerSecond(cfg.Embedding.RequestsPerSecond))
	}

	return knowledge.New(opts), nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printStatus(w io.Writer, st knowledge.Status) {
	fmt.Fprintf(w, "State:       %s\n", st.State)
	fmt.Fprintf(w, "Fingerprint: %s\n", st.Fingerprint)
	fmt.Fprintf(w, "Chunks:      %d (%d embedded)\n", st.Chunks, st.Embedded)
}
