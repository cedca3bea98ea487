package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/ui"
)

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage ingested documents",
		Long: `List or delete ingested documents for the current --owner.

Examples:
  # List documents
  docrag documents

  # Delete a document and its index entries
  docrag documents delete DOC_ID`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDocumentsList(cmd.Context(), cmd)
		},
	}

	cmd.AddCommand(newDocumentsDeleteCmd())

	return cmd
}

func newDocumentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete DOC_ID",
		Short: "Delete a document and all its index entries",
		Long: `Delete a document, its chunks, and its entries in the vector and
lexical indexes. Only the owning --owner may delete a document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocumentsDelete(cmd.Context(), cmd, args[0])
		},
	}
}

func runDocumentsList(ctx context.Context, cmd *cobra.Command) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	docs, err := app.store.ListDocuments(ctx, ownerID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	styles := ui.GetStyles(noColor || !ui.IsInteractive())

	if len(docs) == 0 {
		fmt.Fprintln(out, styles.Dim.Render("No documents. Run 'docrag ingest FILE' to add one."))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tUPDATED")
	for _, doc := range docs {
		status := styles.StatusStyle(string(doc.Status)).Render(string(doc.Status))
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			doc.ID, doc.Filename, status, doc.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runDocumentsDelete(ctx context.Context, cmd *cobra.Command, docID string) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.pipeline.DeleteDocument(ctx, docID, ownerID); err != nil {
		return err
	}

	styles := ui.GetStyles(noColor || !ui.IsInteractive())
	fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n", styles.Success.Render("✓"), docID)
	return nil
}
