package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/ingest"
	"github.com/Aman-CERP/docrag/internal/store"
)

// AskInput is the ask tool request.
type AskInput struct {
	OwnerID   string `json:"owner_id" jsonschema:"identifier of the calling user"`
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation to continue; omit to start a new one"`
	Query     string `json:"query" jsonschema:"the question to answer"`
}

// SourceOutput cites one passage behind an answer.
type SourceOutput struct {
	DocID   string  `json:"doc_id"`
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// AskOutput is the ask tool response.
type AskOutput struct {
	Answer    string         `json:"answer"`
	SessionID string         `json:"session_id"`
	Sources   []SourceOutput `json:"sources"`
}

func (s *Server) askHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult, AskOutput, error,
) {
	answer, err := s.orch.AnswerQuery(ctx, input.OwnerID, input.SessionID, input.Query)
	if err != nil {
		return nil, AskOutput{}, err
	}

	out := AskOutput{
		Answer:    answer.Answer,
		SessionID: answer.SessionID,
		Sources:   make([]SourceOutput, len(answer.Sources)),
	}
	for i, src := range answer.Sources {
		out.Sources[i] = SourceOutput{DocID: src.DocID, ChunkID: src.ChunkID, Score: src.Score}
	}
	return nil, out, nil
}

// SearchInput is the search tool request.
type SearchInput struct {
	OwnerID string `json:"owner_id" jsonschema:"identifier of the calling user"`
	Query   string `json:"query" jsonschema:"keyword or natural language query"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum results, default 10"`
}

// SearchResultOutput is one ranked passage.
type SearchResultOutput struct {
	ChunkID string  `json:"chunk_id"`
	DocID   string  `json:"doc_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// SearchOutput is the search tool response.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	ranked, err := s.orch.Search(ctx, input.OwnerID, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{Results: make([]SearchResultOutput, len(ranked))}
	for i, c := range ranked {
		out.Results[i] = SearchResultOutput{
			ChunkID: c.ChunkID,
			DocID:   c.DocID,
			Text:    c.Text,
			Score:   c.Score,
		}
	}
	return nil, out, nil
}

// IngestInput is the ingest_document tool request. Either path or
// content must be set.
type IngestInput struct {
	OwnerID  string `json:"owner_id" jsonschema:"identifier of the calling user"`
	Path     string `json:"path,omitempty" jsonschema:"absolute path of a file to ingest"`
	Filename string `json:"filename,omitempty" jsonschema:"filename for inline content"`
	Content  string `json:"content,omitempty" jsonschema:"inline document text, saved to the upload directory"`
}

// IngestOutput is the ingest_document tool response.
type IngestOutput struct {
	DocID  string `json:"doc_id"`
	Status string `json:"status"`
}

func (s *Server) ingestHandler(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (
	*mcp.CallToolResult, IngestOutput, error,
) {
	if s.pipeline == nil {
		return nil, IngestOutput{}, fmt.Errorf("ingestion is not enabled on this server")
	}

	path := input.Path
	filename := input.Filename
	switch {
	case path != "":
		if filename == "" {
			filename = path
		}
	case input.Content != "":
		if filename == "" {
			return nil, IngestOutput{}, errors.InvalidInput("filename is required with inline content")
		}
		path = s.uploadPath(filename)
		if err := os.MkdirAll(s.config.Paths.UploadDir, 0o755); err != nil {
			return nil, IngestOutput{}, fmt.Errorf("create upload directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(input.Content), 0o644); err != nil {
			return nil, IngestOutput{}, fmt.Errorf("save inline content: %w", err)
		}
	default:
		return nil, IngestOutput{}, errors.InvalidInput("either path or content must be provided")
	}

	docID, err := s.pipeline.Submit(ctx, input.OwnerID, filename, path)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{DocID: docID, Status: string(store.StatusQueued)}, nil
}

// ListDocumentsInput is the list_documents tool request.
type ListDocumentsInput struct {
	OwnerID string `json:"owner_id" jsonschema:"identifier of the calling user"`
}

// DocumentOutput is one document listing row.
type DocumentOutput struct {
	DocID     string    `json:"doc_id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListDocumentsOutput is the list_documents tool response.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
}

func (s *Server) listDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, input ListDocumentsInput) (
	*mcp.CallToolResult, ListDocumentsOutput, error,
) {
	docs, err := s.store.ListDocuments(ctx, input.OwnerID)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	out := ListDocumentsOutput{Documents: make([]DocumentOutput, len(docs))}
	for i, d := range docs {
		out.Documents[i] = DocumentOutput{
			DocID:     d.ID,
			Filename:  d.Filename,
			Status:    string(d.Status),
			Error:     d.Error,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		}
	}
	return nil, out, nil
}

// DeleteDocumentInput is the delete_document tool request.
type DeleteDocumentInput struct {
	OwnerID string `json:"owner_id" jsonschema:"identifier of the calling user"`
	DocID   string `json:"doc_id" jsonschema:"document to delete"`
}

// DeleteDocumentOutput is the delete_document tool response.
type DeleteDocumentOutput struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) deleteDocumentHandler(ctx context.Context, _ *mcp.CallToolRequest, input DeleteDocumentInput) (
	*mcp.CallToolResult, DeleteDocumentOutput, error,
) {
	if s.pipeline == nil {
		return nil, DeleteDocumentOutput{}, fmt.Errorf("ingestion is not enabled on this server")
	}
	if err := s.pipeline.DeleteDocument(ctx, input.DocID, input.OwnerID); err != nil {
		return nil, DeleteDocumentOutput{}, err
	}
	return nil, DeleteDocumentOutput{Deleted: true}, nil
}

// ListSessionsInput is the list_sessions tool request.
type ListSessionsInput struct {
	OwnerID string `json:"owner_id" jsonschema:"identifier of the calling user"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum sessions, default 50"`
	Skip    int    `json:"skip,omitempty" jsonschema:"sessions to skip for pagination"`
}

// SessionOutput is one session listing row.
type SessionOutput struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	TotalQueries int       `json:"total_queries"`
	Preview      string    `json:"preview"`
}

// ListSessionsOutput is the list_sessions tool response.
type ListSessionsOutput struct {
	Sessions []SessionOutput `json:"sessions"`
}

func (s *Server) listSessionsHandler(ctx context.Context, _ *mcp.CallToolRequest, input ListSessionsInput) (
	*mcp.CallToolResult, ListSessionsOutput, error,
) {
	if s.sessions == nil {
		return nil, ListSessionsOutput{Sessions: []SessionOutput{}}, nil
	}

	summaries, err := s.sessions.List(ctx, input.OwnerID, input.Limit, input.Skip)
	if err != nil {
		return nil, ListSessionsOutput{}, err
	}

	out := ListSessionsOutput{Sessions: make([]SessionOutput, len(summaries))}
	for i, sum := range summaries {
		out.Sessions[i] = SessionOutput{
			SessionID:    sum.ID,
			CreatedAt:    sum.CreatedAt,
			UpdatedAt:    sum.UpdatedAt,
			TotalQueries: sum.TotalQueries,
			Preview:      sum.Preview,
		}
	}
	return nil, out, nil
}

// DeleteSessionInput is the delete_session tool request.
type DeleteSessionInput struct {
	OwnerID   string `json:"owner_id" jsonschema:"identifier of the calling user"`
	SessionID string `json:"session_id" jsonschema:"session to delete"`
}

// DeleteSessionOutput is the delete_session tool response.
type DeleteSessionOutput struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) deleteSessionHandler(ctx context.Context, _ *mcp.CallToolRequest, input DeleteSessionInput) (
	*mcp.CallToolResult, DeleteSessionOutput, error,
) {
	if s.sessions == nil {
		return nil, DeleteSessionOutput{}, fmt.Errorf("sessions are not enabled on this server")
	}
	deleted, err := s.sessions.Delete(ctx, input.SessionID, input.OwnerID)
	if err != nil {
		return nil, DeleteSessionOutput{}, err
	}
	return nil, DeleteSessionOutput{Deleted: deleted}, nil
}

// IndexStatusInput is the index_status tool request.
type IndexStatusInput struct {
	OwnerID string `json:"owner_id,omitempty" jsonschema:"scope document counts to one user"`
}

// IndexStatusOutput is the index_status tool response.
type IndexStatusOutput struct {
	Vectors          int                       `json:"vectors"`
	GraphNodes       int                       `json:"graph_nodes"`
	Dimensions       int                       `json:"dimensions"`
	Documents        int                       `json:"documents"`
	DocumentsByState map[string]int            `json:"documents_by_state"`
	InFlight         []ingest.ProgressSnapshot `json:"in_flight,omitempty"`
}

func (s *Server) indexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexStatusInput) (
	*mcp.CallToolResult, IndexStatusOutput, error,
) {
	out := IndexStatusOutput{DocumentsByState: map[string]int{}}

	if s.vectors != nil {
		stats := s.vectors.Stats()
		out.Vectors = stats.Vectors
		out.GraphNodes = stats.GraphNodes
		out.Dimensions = stats.Dimensions
	}

	docs, err := s.store.ListDocuments(ctx, input.OwnerID)
	if err != nil {
		return nil, IndexStatusOutput{}, err
	}
	out.Documents = len(docs)
	for _, d := range docs {
		out.DocumentsByState[string(d.Status)]++
	}

	if s.pipeline != nil {
		out.InFlight = s.pipeline.InFlight()
	}
	return nil, out, nil
}
