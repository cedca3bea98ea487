// Package mcp exposes the document QA pipeline to MCP clients over
// stdio. Every tool takes an owner_id so multi-tenant isolation holds
// at the protocol boundary.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/ingest"
	"github.com/Aman-CERP/docrag/internal/query"
	"github.com/Aman-CERP/docrag/internal/session"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/vector"
	"github.com/Aman-CERP/docrag/pkg/version"
)

// Server bridges MCP clients with the retrieval and ingestion stack.
type Server struct {
	mcp      *mcp.Server
	orch     *query.Orchestrator
	pipeline *ingest.Pipeline
	store    store.DocumentStore
	sessions *session.Manager
	vectors  *vector.Index
	config   *config.Config
	logger   *slog.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(
	orch *query.Orchestrator,
	pipeline *ingest.Pipeline,
	docs store.DocumentStore,
	sessions *session.Manager,
	vectors *vector.Index,
	cfg *config.Config,
	logger *slog.Logger,
) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("query orchestrator is required")
	}
	if docs == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		orch:     orch,
		pipeline: pipeline,
		store:    docs,
		sessions: sessions,
		vectors:  vectors,
		config:   cfg,
		logger:   logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "docrag",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting_mcp_server",
		slog.String("transport", transport),
		slog.String("version", version.Version))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp_server_stopped",
				slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documents. Retrieves with hybrid dense and keyword search, reranks, and generates a grounded answer with source citations. Pass session_id to continue a conversation; omit it to start one.",
	}, s.askHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve document passages matching a query without generating an answer. Returns ranked chunks with scores.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Queue a file for ingestion: extraction, chunking, embedding, and indexing. Returns the document ID immediately; poll index_status or list_documents for completion.",
	}, s.ingestHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the caller's documents with their ingestion status.",
	}, s.listDocumentsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and all of its indexed chunks.",
	}, s.deleteDocumentHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List the caller's conversation sessions, most recently active first.",
	}, s.listSessionsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a conversation session and its history.",
	}, s.deleteSessionHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report index health: vector and document counts, embedding dimensionality, and per-status document totals.",
	}, s.indexStatusHandler)

	s.logger.Info("mcp_tools_registered", slog.Int("count", 8))
}

// Close releases server resources. The MCP run loop stops when its
// context is cancelled.
func (s *Server) Close() error {
	return nil
}

// uploadPath resolves where an ingested file should live.
func (s *Server) uploadPath(filename string) string {
	return filepath.Join(s.config.Paths.UploadDir, filepath.Base(filename))
}
