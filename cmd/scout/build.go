package main

import (
	"fmt"
	"time"

	"github.com/perbu/scoutrag/pkg/cache"
	"github.com/perbu/scoutrag/pkg/loader"
	"github.com/spf13/cobra"
)

func NewBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the knowledge base",
		Long:  `Load the cached corpus or build and cache a new one, then print its status.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			if _, err := a.svc.Corpus(cmd.Context()); err != nil {
				return fmt.Errorf("build: %w", err)
			}
			printStatus(cmd.OutOrStdout(), a.svc.Status())
			fmt.Fprintf(cmd.OutOrStdout(), "Took:        %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func NewFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the fingerprint of the team data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			teams, err := loader.NewDirectory(a.cfg.DataDir, a.logger).LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cache.Fingerprint(teams))
			return nil
		},
	}
}
