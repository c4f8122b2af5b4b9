package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/perbu/scoutrag/pkg/knowledge"
	"github.com/spf13/cobra"
)

func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve passages for a question",
		Long:  `Retrieve the most relevant scouting passages, building the knowledge base first if needed.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().IntP("number", "n", 0, "Passages to return (default from config)")
	cmd.Flags().String("team", "", "Prefer passages about this team")
	cmd.Flags().Bool("scores", false, "Show scores")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

type queryResult struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	k, _ := cmd.Flags().GetInt("number")
	team, _ := cmd.Flags().GetString("team")
	showScores, _ := cmd.Flags().GetBool("scores")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	return printQuery(cmd, a.svc, query, k, team, showScores, asJSON)
}

func printQuery(cmd *cobra.Command, svc *knowledge.Service, query string, k int, team string, showScores, asJSON bool) error {
	results, err := svc.Search(cmd.Context(), query, k, team)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		rows := make([]queryResult, len(results))
		for i, r := range results {
			rows[i] = queryResult{Source: r.Chunk.Source, Score: r.Score, Text: r.Chunk.Text}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found")
		return nil
	}

	for i, r := range results {
		if showScores {
			fmt.Fprintf(out, "Score: %.3f | %s\n", r.Score, r.Chunk.Source)
		}
		fmt.Fprintln(out, strings.TrimRight(r.Chunk.Text, "\n"))
		if i < len(results)-1 {
			fmt.Fprintln(out, "\n"+strings.Repeat("-", 80)+"\n")
		}
	}
	return nil
}
