// Package cmd provides the CLI commands for docrag.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/logging"
	"github.com/Aman-CERP/docrag/pkg/version"
)

// Persistent flags shared by every subcommand.
var (
	configPath  string
	ownerID     string
	noColor     bool
	debugMode   bool
	offlineMode bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the docrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docrag",
		Short: "Local document Q&A over an MCP server",
		Long: `docrag ingests documents into a hybrid index (BM25 + semantic)
and answers questions about them with retrieval-augmented generation.

It exposes its tools over the Model Context Protocol for AI assistants
and offers the same operations directly from this CLI.

Run 'docrag serve' to start the MCP server, or 'docrag ingest FILE'
followed by 'docrag query "..."' for one-shot use.`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate("docrag version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.docrag/config.yaml)")
	cmd.PersistentFlags().StringVar(&ownerID, "owner", "default", "Owner identifier scoping documents and sessions")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.docrag/logs/")
	cmd.PersistentFlags().BoolVar(&offlineMode, "offline", false, "Use static embeddings and canned generation (no Ollama)")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDocumentsCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug logging when the flag is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	cfg := logging.DefaultConfig()
	cfg.Level = "debug"

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug_logging_enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

// stopLogging flushes and closes the debug log file.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}
