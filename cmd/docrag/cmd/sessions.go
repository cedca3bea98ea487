package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/ui"
)

func newSessionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage conversation sessions",
		Long: `List or delete conversation sessions for the current --owner.

Sessions carry multi-turn context: continuing a session lets the
assistant resolve follow-up questions against earlier turns.

Examples:
  # List sessions, most recently used first
  docrag sessions

  # Delete a session and its messages
  docrag sessions delete SESSION_ID`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessionsList(cmd.Context(), cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions to list")

	cmd.AddCommand(newSessionsDeleteCmd())

	return cmd
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(cmd.Context(), cmd, args[0])
		},
	}
}

func runSessionsList(ctx context.Context, cmd *cobra.Command, limit int) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	sessions, err := app.sessions.List(ctx, ownerID, limit, 0)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	styles := ui.GetStyles(noColor || !ui.IsInteractive())

	if len(sessions) == 0 {
		fmt.Fprintln(out, styles.Dim.Render("No sessions."))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQUERIES\tUPDATED\tPREVIEW")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			s.ID, s.TotalQueries, s.UpdatedAt.Format("2006-01-02 15:04"), s.Preview)
	}
	return w.Flush()
}

func runSessionsDelete(ctx context.Context, cmd *cobra.Command, sessionID string) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	deleted, err := app.sessions.Delete(ctx, sessionID, ownerID)
	if err != nil {
		return err
	}

	styles := ui.GetStyles(noColor || !ui.IsInteractive())
	out := cmd.OutOrStdout()
	if !deleted {
		fmt.Fprintln(out, styles.Warning.Render("Session not found."))
		return nil
	}
	fmt.Fprintf(out, "%s deleted %s\n", styles.Success.Render("✓"), sessionID)
	return nil
}
