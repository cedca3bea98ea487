package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Watch a directory and ingest new documents",
		Long: `Watch a directory for new or changed documents and ingest them
automatically. Defaults to the configured upload directory.

Files already present when the watch starts are ingested once up front.
Runs until interrupted.

Examples:
  docrag watch
  docrag watch ~/Documents/inbox --debounce 2s`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runWatch(cmd.Context(), cmd, dir, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before ingesting a changed file")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string, debounce time.Duration) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if dir == "" {
		dir = app.cfg.Paths.UploadDir
	}

	app.pipeline.Start(ctx)
	defer app.pipeline.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (owner %s). Press Ctrl+C to stop.\n", dir, ownerID)

	w := watch.New(dir, ownerID, app.pipeline, debounce, app.logger)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
