package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/ui"
)

// statusInfo is the collected health view, also used for JSON output.
type statusInfo struct {
	DataDir          string         `json:"data_dir"`
	Documents        int            `json:"documents"`
	DocumentsByState map[string]int `json:"documents_by_state"`
	Vectors          int            `json:"vectors"`
	Dimensions       int            `json:"dimensions"`
	EmbedProvider    string         `json:"embed_provider"`
	EmbedModel       string         `json:"embed_model"`
	EmbedAvailable   bool           `json:"embed_available"`
	MetadataBytes    int64          `json:"metadata_bytes"`
	VectorBytes      int64          `json:"vector_bytes"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and status",
		Long: `Display information about the current index including:
  - Document counts per ingestion state
  - Vector count and dimensionality
  - Embedder provider, model, and availability
  - Storage sizes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	info, err := collectStatus(ctx, app)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	styles := ui.GetStyles(noColor || !ui.IsInteractive())

	fmt.Fprintln(out, styles.Header.Render("docrag status"))
	fmt.Fprintf(out, "%s %s\n", styles.Label.Render("data dir:"), info.DataDir)
	fmt.Fprintf(out, "%s %d", styles.Label.Render("documents:"), info.Documents)
	for _, state := range []string{
		string(store.StatusIndexed), string(store.StatusProcessing),
		string(store.StatusQueued), string(store.StatusError),
	} {
		if n := info.DocumentsByState[state]; n > 0 {
			fmt.Fprintf(out, "  %s", styles.StatusStyle(state).Render(fmt.Sprintf("%d %s", n, state)))
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %d (%d dims)\n", styles.Label.Render("vectors:"), info.Vectors, info.Dimensions)
	avail := styles.Success.Render("available")
	if !info.EmbedAvailable {
		avail = styles.Error.Render("unavailable")
	}
	fmt.Fprintf(out, "%s %s/%s %s\n", styles.Label.Render("embedder:"),
		info.EmbedProvider, info.EmbedModel, avail)
	fmt.Fprintf(out, "%s metadata %s, vectors %s\n", styles.Label.Render("storage:"),
		formatBytes(info.MetadataBytes), formatBytes(info.VectorBytes))
	return nil
}

func collectStatus(ctx context.Context, app *app) (*statusInfo, error) {
	docs, err := app.store.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	byState := make(map[string]int)
	for _, doc := range docs {
		byState[string(doc.Status)]++
	}

	stats := app.vectors.Stats()

	return &statusInfo{
		DataDir:          app.cfg.Paths.DataDir,
		Documents:        len(docs),
		DocumentsByState: byState,
		Vectors:          stats.Vectors,
		Dimensions:       stats.Dimensions,
		EmbedProvider:    app.cfg.Embeddings.Provider,
		EmbedModel:       app.embedder.ModelName(),
		EmbedAvailable:   app.embedder.Available(ctx),
		MetadataBytes:    fileSize(app.cfg.MetadataDBPath()),
		VectorBytes:      fileSize(app.cfg.VectorIndexPath()),
	}, nil
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
