package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the ingested documents",
		Long: `Retrieve the most relevant chunks for a query without running
generation.

Combines semantic (embedding) and BM25 (keyword) retrieval, then
reranks the merged candidates.

Examples:
  docrag search "refund policy"
  docrag search "kubernetes upgrade steps" --limit 5 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, limit, format)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, limit int, format string) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	results, err := app.orch.Search(ctx, ownerID, query, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	styles := ui.GetStyles(noColor || !ui.IsInteractive())

	if len(results) == 0 {
		fmt.Fprintln(out, styles.Dim.Render("No results."))
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(out, "%s %s %s\n",
			styles.Header.Render(fmt.Sprintf("%d.", i+1)),
			r.ChunkID,
			styles.Dim.Render(fmt.Sprintf("(%.3f)", r.Score)))
		text := r.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Fprintf(out, "   %s\n", styles.Label.Render(text))
	}
	return nil
}
