// Package ingest moves uploaded documents through extraction, chunking,
// embedding, and indexing. Documents carry a status so callers can poll
// progress: queued, processing, indexed, or error.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/docrag/internal/chunk"
	"github.com/Aman-CERP/docrag/internal/embed"
	"github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/lexical"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/vector"
)

// DefaultQueueSize bounds pending background jobs.
const DefaultQueueSize = 64

type job struct {
	docID   string
	ownerID string
	path    string
}

// Pipeline ingests documents, either synchronously or through a
// background worker.
type Pipeline struct {
	store    store.DocumentStore
	vectors  *vector.Index
	lexical  lexical.Provider
	embedder embed.Embedder
	chunker  *chunk.Chunker
	logger   *slog.Logger
	progress *progressTracker

	jobs     chan job
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	mu      sync.Mutex
	running bool
}

// New creates a pipeline. queueSize <= 0 uses the default.
func New(
	docs store.DocumentStore,
	vectors *vector.Index,
	lex lexical.Provider,
	embedder embed.Embedder,
	chunker *chunk.Chunker,
	queueSize int,
	logger *slog.Logger,
) *Pipeline {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    docs,
		vectors:  vectors,
		lexical:  lex,
		embedder: embedder,
		chunker:  chunker,
		logger:   logger,
		progress: newProgressTracker(),
		jobs:     make(chan job, queueSize),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to
// drain and shut down.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.doneCh)
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			p.process(ctx, j)
		}
	}
}

// Stop shuts the worker down after the current job finishes. Queued
// jobs stay in documents with status queued and can be resubmitted.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.doneCh
}

// Submit registers a document and queues it for background ingestion.
// Returns the new document ID immediately.
func (p *Pipeline) Submit(ctx context.Context, ownerID, filename, path string) (string, error) {
	docID, err := p.register(ctx, ownerID, filename, path)
	if err != nil {
		return "", err
	}

	select {
	case p.jobs <- job{docID: docID, ownerID: ownerID, path: path}:
		return docID, nil
	default:
		// Queue full. Leave the document queued so a later worker pass
		// or resubmission can pick it up, but tell the caller.
		return docID, errors.New(errors.ErrCodeIngestFailed,
			"ingest queue is full, document registered but not scheduled", nil).
			WithDetail("doc_id", docID).
			WithSuggestion("retry once current ingestion finishes")
	}
}

// IngestSync registers and processes a document inline. Used by the CLI
// where there is no long-lived worker.
func (p *Pipeline) IngestSync(ctx context.Context, ownerID, filename, path string) (string, error) {
	docID, err := p.register(ctx, ownerID, filename, path)
	if err != nil {
		return "", err
	}

	p.process(ctx, job{docID: docID, ownerID: ownerID, path: path})

	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return docID, err
	}
	if doc.Status == store.StatusError {
		return docID, errors.New(errors.ErrCodeIngestFailed, doc.Error, nil).
			WithDetail("doc_id", docID)
	}
	return docID, nil
}

func (p *Pipeline) register(ctx context.Context, ownerID, filename, path string) (string, error) {
	if ownerID == "" {
		return "", errors.InvalidInput("owner_id is required")
	}
	if !SupportedFile(path) {
		return "", errors.InvalidInput(fmt.Sprintf("unsupported file type: %s", filename))
	}

	docID := uuid.NewString()
	if err := p.store.CreateDocument(ctx, &store.Document{
		ID:       docID,
		OwnerID:  ownerID,
		Filename: filename,
		Path:     path,
		Status:   store.StatusQueued,
	}); err != nil {
		return "", err
	}
	return docID, nil
}

// process runs one document through the full pipeline, recording the
// outcome in its status.
func (p *Pipeline) process(ctx context.Context, j job) {
	started := time.Now()

	p.progress.start(j.docID)
	defer p.progress.finish(j.docID)

	if err := p.store.SetDocumentStatus(ctx, j.docID, store.StatusProcessing, ""); err != nil {
		p.logger.Error("ingest_status_update_failed",
			slog.String("doc_id", j.docID),
			slog.String("error", err.Error()))
		return
	}

	if err := p.index(ctx, j); err != nil {
		p.logger.Error("ingest_failed",
			slog.String("doc_id", j.docID),
			slog.String("error", err.Error()))
		if statusErr := p.store.SetDocumentStatus(ctx, j.docID, store.StatusError, err.Error()); statusErr != nil {
			p.logger.Error("ingest_status_update_failed",
				slog.String("doc_id", j.docID),
				slog.String("error", statusErr.Error()))
		}
		return
	}

	if err := p.store.SetDocumentStatus(ctx, j.docID, store.StatusIndexed, ""); err != nil {
		p.logger.Error("ingest_status_update_failed",
			slog.String("doc_id", j.docID),
			slog.String("error", err.Error()))
		return
	}

	p.logger.Info("document_indexed",
		slog.String("doc_id", j.docID),
		slog.String("owner_id", j.ownerID),
		slog.Duration("elapsed", time.Since(started)))
}

func (p *Pipeline) index(ctx context.Context, j job) error {
	text, err := extractText(j.path)
	if err != nil {
		return err
	}

	p.progress.setStage(j.docID, StageChunking)
	chunks := p.chunker.Split(j.docID, j.ownerID, text)
	if len(chunks) == 0 {
		return errors.New(errors.ErrCodeIngestFailed, "document produced no chunks", nil)
	}
	p.progress.setChunks(j.docID, len(chunks))

	if err := p.store.SaveChunks(ctx, chunks); err != nil {
		return err
	}

	p.progress.setStage(j.docID, StageEmbedding)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	p.progress.setStage(j.docID, StageIndexing)
	if _, err := p.vectors.Upsert(ctx, j.ownerID, j.docID, chunks, embeddings); err != nil {
		return err
	}

	lexChunks := make([]lexical.Chunk, len(chunks))
	for i, ch := range chunks {
		lexChunks[i] = lexical.Chunk{
			ChunkID: ch.ChunkID,
			DocID:   ch.DocID,
			OwnerID: ch.OwnerID,
			Text:    ch.Text,
		}
	}
	return p.lexical.Index(ctx, lexChunks)
}

// Progress reports the stage of an in-flight job. ok is false once the
// job has finished (or never existed); poll the document status then.
func (p *Pipeline) Progress(docID string) (ProgressSnapshot, bool) {
	return p.progress.snapshot(docID)
}

// InFlight lists progress for every job currently being processed.
func (p *Pipeline) InFlight() []ProgressSnapshot {
	return p.progress.snapshots()
}

// DeleteDocument removes a document from every index and the store.
// Owner mismatch reads as not found.
func (p *Pipeline) DeleteDocument(ctx context.Context, docID, ownerID string) error {
	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.OwnerID != ownerID {
		return errors.NotFound(errors.ErrCodeDocumentNotFound,
			fmt.Sprintf("document %s not found", docID))
	}

	if _, err := p.vectors.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if err := p.lexical.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	return p.store.DeleteDocument(ctx, docID)
}
