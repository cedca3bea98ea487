package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/ui"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Ingest documents into the index",
		Long: `Ingest one or more documents and wait for indexing to finish.

Each file is chunked, embedded, and added to both the vector and the
lexical index under the current --owner.

Examples:
  docrag ingest notes.md
  docrag ingest --owner alice report.txt handbook.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, args)
		},
	}
}

func runIngest(ctx context.Context, cmd *cobra.Command, files []string) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	styles := ui.GetStyles(noColor || !ui.IsInteractive())
	out := cmd.OutOrStdout()

	var failed int
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			abs = file
		}
		docID, err := app.pipeline.IngestSync(ctx, ownerID, filepath.Base(file), abs)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", styles.Error.Render("✗"), file, err)
			continue
		}
		fmt.Fprintf(out, "%s %s (%s)\n", styles.Success.Render("✓"), file, styles.Dim.Render(docID))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to ingest", failed, len(files))
	}
	return nil
}
