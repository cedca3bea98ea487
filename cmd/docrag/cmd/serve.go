package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/mcp"
	"github.com/Aman-CERP/docrag/internal/watch"
)

func newServeCmd() *cobra.Command {
	var watchUploads bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server on stdio.

The server exposes ask, search, ingest, and document/session management
tools over the Model Context Protocol. The background ingestion worker
runs for the lifetime of the server.

With --watch, files dropped into the upload directory are ingested
automatically.

Note: stdout carries the MCP protocol. Diagnostics go to stderr and the
log file; use 'docrag status' from another terminal for a health view.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), watchUploads)
		},
	}

	cmd.Flags().BoolVar(&watchUploads, "watch", false, "Watch the upload directory for new documents")

	return cmd
}

func runServe(ctx context.Context, watchUploads bool) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	app.pipeline.Start(ctx)
	defer app.pipeline.Stop()

	if watchUploads {
		w := watch.New(app.cfg.Paths.UploadDir, ownerID, app.pipeline, 0, app.logger)
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("watcher_stopped", slog.String("error", err.Error()))
			}
		}()
	}

	srv, err := mcp.NewServer(app.orch, app.pipeline, app.store, app.sessions, app.vectors, app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	err = srv.Serve(ctx, app.cfg.Server.Transport)
	if ctx.Err() != nil {
		// Graceful shutdown on SIGINT/SIGTERM. Give the pipeline a
		// moment to finish the in-flight job before Close.
		time.Sleep(100 * time.Millisecond)
		return nil
	}
	return err
}
