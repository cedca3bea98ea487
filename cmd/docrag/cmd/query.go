package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/ui"
)

// queryOptions holds CLI flags for query.
type queryOptions struct {
	sessionID string
	format    string // "text", "json"
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query QUESTION",
		Short: "Ask a question about the ingested documents",
		Long: `Ask a question and get an answer grounded in the ingested
documents.

Every query runs inside a session. Without --session a new one is
created and its ID printed, so follow-up questions can continue the
conversation:

  docrag query "What is the refund policy?"
  docrag query --session SESSION_ID "And for digital goods?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return runQuery(cmd.Context(), cmd, question, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Continue an existing session")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")

	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, question string, opts queryOptions) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	answer, err := app.orch.AnswerQuery(ctx, ownerID, opts.sessionID, question)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	styles := ui.GetStyles(noColor || !ui.IsInteractive())

	fmt.Fprintln(out, styles.Answer.Render(answer.Answer))
	if len(answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, styles.Label.Render("Sources:"))
		for _, src := range answer.Sources {
			fmt.Fprintf(out, "  %s %s\n",
				styles.Dim.Render(fmt.Sprintf("%.3f", src.Score)), src.ChunkID)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Dim.Render("session: "+answer.SessionID))
	return nil
}
