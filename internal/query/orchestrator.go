// Package query orchestrates the answer pipeline: hybrid retrieval,
// reranking, grounded generation, and conversation bookkeeping.
package query

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docrag/internal/embed"
	"github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/lexical"
	"github.com/Aman-CERP/docrag/internal/llm"
	"github.com/Aman-CERP/docrag/internal/rerank"
	"github.com/Aman-CERP/docrag/internal/session"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/vector"
)

// Options tunes retrieval depth and context assembly.
type Options struct {
	// DenseK and SparseK bound each retriever's candidate count.
	DenseK  int
	SparseK int

	// ContextChunks is how many reranked passages feed generation.
	ContextChunks int

	// HistoryTurns bounds the conversation preamble.
	HistoryTurns int
}

// DefaultOptions mirror the service configuration defaults.
func DefaultOptions() Options {
	return Options{
		DenseK:        10,
		SparseK:       10,
		ContextChunks: 3,
		HistoryTurns:  session.DefaultHistoryTurns,
	}
}

// Source cites one context passage used for an answer.
type Source struct {
	DocID   string  `json:"doc_id"`
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// Answer is the orchestrator's result.
type Answer struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
}

// Orchestrator wires the retrieval and generation components.
type Orchestrator struct {
	store     store.DocumentStore
	vectors   *vector.Index
	lexical   lexical.Provider
	embedder  embed.Embedder
	reranker  rerank.Reranker
	generator llm.Generator
	sessions  *session.Manager
	opts      Options
	logger    *slog.Logger
}

// New creates an orchestrator. A nil logger falls back to the default.
func New(
	docs store.DocumentStore,
	vectors *vector.Index,
	lex lexical.Provider,
	embedder embed.Embedder,
	reranker rerank.Reranker,
	generator llm.Generator,
	sessions *session.Manager,
	opts Options,
	logger *slog.Logger,
) *Orchestrator {
	if opts.DenseK <= 0 {
		opts.DenseK = 10
	}
	if opts.SparseK <= 0 {
		opts.SparseK = 10
	}
	if opts.ContextChunks <= 0 {
		opts.ContextChunks = 3
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = session.DefaultHistoryTurns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     docs,
		vectors:   vectors,
		lexical:   lex,
		embedder:  embedder,
		reranker:  reranker,
		generator: generator,
		sessions:  sessions,
		opts:      opts,
		logger:    logger,
	}
}

// AnswerQuery runs the full pipeline for one question. An empty
// sessionID starts a new session; its ID comes back in the answer so the
// caller can continue the conversation.
func (o *Orchestrator) AnswerQuery(ctx context.Context, ownerID, sessionID, query string) (*Answer, error) {
	started := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query text is empty", nil)
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, errors.InvalidInput("owner_id is required")
	}

	sessionID, conversation, err := o.resolveSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	ranked, denseHits, sparseHits, err := o.retrieve(ctx, ownerID, query)
	if err != nil {
		return nil, err
	}

	var answer string
	var sources []Source
	if len(ranked) == 0 {
		answer, err = o.generator.Generate(ctx, query, nil, conversation)
		if err != nil {
			return nil, err
		}
		sources = []Source{}
	} else {
		top := ranked
		if len(top) > o.opts.ContextChunks {
			top = top[:o.opts.ContextChunks]
		}

		contexts := make([]string, len(top))
		sources = make([]Source, len(top))
		for i, c := range top {
			contexts[i] = c.Text
			sources[i] = Source{DocID: c.DocID, ChunkID: c.ChunkID, Score: c.Score}
		}

		answer, err = o.generator.Generate(ctx, query, contexts, conversation)
		if err != nil {
			return nil, err
		}
	}

	o.recordTurn(ctx, sessionID, ownerID, query, answer, sources)

	o.logger.Info("query_answered",
		slog.String("owner_id", ownerID),
		slog.String("session_id", sessionID),
		slog.Int("dense_hits", denseHits),
		slog.Int("sparse_hits", sparseHits),
		slog.Int("contexts", len(sources)),
		slog.Duration("elapsed", time.Since(started)))

	return &Answer{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	}, nil
}

// Search runs hybrid retrieval and reranking without generation,
// returning up to limit ranked passages.
func (o *Orchestrator) Search(ctx context.Context, ownerID, query string, limit int) ([]rerank.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query text is empty", nil)
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, errors.InvalidInput("owner_id is required")
	}

	ranked, _, _, err := o.retrieve(ctx, ownerID, query)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// retrieve runs dense and sparse search concurrently, merges by chunk
// keeping the higher score, hydrates text, and reranks. Either retriever
// failing fails the call; degraded modes are wired in as providers.
func (o *Orchestrator) retrieve(ctx context.Context, ownerID, query string) ([]rerank.Candidate, int, int, error) {
	queryEmbedding, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, 0, 0, err
	}

	var (
		dense  []vector.Hit
		sparse []lexical.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var searchErr error
		dense, searchErr = o.vectors.Search(gctx, queryEmbedding, o.opts.DenseK, ownerID)
		return searchErr
	})
	g.Go(func() error {
		var searchErr error
		sparse, searchErr = o.lexical.Search(gctx, query, o.opts.SparseK, ownerID)
		return searchErr
	})
	if err := g.Wait(); err != nil {
		return nil, 0, 0, err
	}

	candidates, err := o.hydrate(ctx, mergeCandidates(dense, sparse))
	if err != nil {
		return nil, 0, 0, err
	}
	if len(candidates) == 0 {
		return nil, len(dense), len(sparse), nil
	}

	ranked, err := o.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, 0, 0, err
	}
	return ranked, len(dense), len(sparse), nil
}

// resolveSession validates an existing session or starts a fresh one,
// and builds the conversation preamble. Without a session manager the
// pipeline runs stateless.
func (o *Orchestrator) resolveSession(ctx context.Context, ownerID, sessionID string) (string, string, error) {
	if o.sessions == nil {
		return sessionID, "", nil
	}

	if sessionID == "" {
		created, err := o.sessions.Create(ctx, ownerID, "")
		if err != nil {
			return "", "", err
		}
		return created, "", nil
	}

	if _, err := o.sessions.Get(ctx, sessionID, ownerID); err != nil {
		return "", "", err
	}

	conversation, err := o.sessions.BuildContext(ctx, sessionID, ownerID, o.opts.HistoryTurns)
	if err != nil {
		// History is an enhancement. Answer without it.
		o.logger.Warn("conversation_context_failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		return sessionID, "", nil
	}
	return sessionID, conversation, nil
}

// hydrate loads chunk text for merged candidates. Chunks deleted since
// retrieval are dropped.
func (o *Orchestrator) hydrate(ctx context.Context, merged []candidate) ([]rerank.Candidate, error) {
	if len(merged) == 0 {
		return nil, nil
	}

	ids := make([]string, len(merged))
	for i, c := range merged {
		ids[i] = c.ChunkID
	}

	chunks, err := o.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*store.Chunk, len(chunks))
	for _, ch := range chunks {
		byID[ch.ChunkID] = ch
	}

	candidates := make([]rerank.Candidate, 0, len(merged))
	for _, c := range merged {
		ch, ok := byID[c.ChunkID]
		if !ok {
			continue
		}
		candidates = append(candidates, rerank.Candidate{
			ChunkID: c.ChunkID,
			DocID:   c.DocID,
			Text:    ch.Text,
			Score:   c.Score,
		})
	}
	return candidates, nil
}

// recordTurn appends the exchange to the session, best-effort. A failed
// write never fails the answer. The assistant turn carries the cited
// sources; their doc IDs accumulate on the session.
func (o *Orchestrator) recordTurn(ctx context.Context, sessionID, ownerID, query, answer string, sources []Source) {
	if o.sessions == nil || sessionID == "" {
		return
	}

	refs := make([]session.SourceRef, len(sources))
	docIDs := make([]string, len(sources))
	for i, s := range sources {
		refs[i] = session.SourceRef{DocID: s.DocID, ChunkID: s.ChunkID, Score: s.Score}
		docIDs[i] = s.DocID
	}

	if _, err := o.sessions.AddMessage(ctx, sessionID, ownerID, session.RoleUser, query, nil, nil); err != nil {
		o.logger.Warn("session_write_failed",
			slog.String("session_id", sessionID),
			slog.String("role", session.RoleUser),
			slog.String("error", err.Error()))
	}
	if _, err := o.sessions.AddMessage(ctx, sessionID, ownerID, session.RoleAssistant, answer, refs, docIDs); err != nil {
		o.logger.Warn("session_write_failed",
			slog.String("session_id", sessionID),
			slog.String("role", session.RoleAssistant),
			slog.String("error", err.Error()))
	}
}
