package ingest

import (
	"sync"
	"time"
)

// Stage is the phase an in-flight ingestion job is currently in.
type Stage string

const (
	StageExtracting Stage = "extracting"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StageIndexing   Stage = "indexing"
)

// ProgressSnapshot is an immutable view of one in-flight job, for
// status polling.
type ProgressSnapshot struct {
	DocID          string `json:"doc_id"`
	Stage          string `json:"stage"`
	ChunksTotal    int    `json:"chunks_total"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

type docProgress struct {
	stage       Stage
	chunksTotal int
	started     time.Time
}

// progressTracker tracks in-flight ingestion jobs by document ID.
// Entries exist only while a job is processing; completed and failed
// jobs are visible through the document status instead.
type progressTracker struct {
	mu   sync.RWMutex
	jobs map[string]*docProgress
}

func newProgressTracker() *progressTracker {
	return &progressTracker{jobs: make(map[string]*docProgress)}
}

func (t *progressTracker) start(docID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[docID] = &docProgress{stage: StageExtracting, started: time.Now()}
}

func (t *progressTracker) setStage(docID string, stage Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.jobs[docID]; ok {
		p.stage = stage
	}
}

func (t *progressTracker) setChunks(docID string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.jobs[docID]; ok {
		p.chunksTotal = total
	}
}

func (t *progressTracker) finish(docID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, docID)
}

func (t *progressTracker) snapshot(docID string) (ProgressSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.jobs[docID]
	if !ok {
		return ProgressSnapshot{}, false
	}
	return p.view(docID), true
}

func (t *progressTracker) snapshots() []ProgressSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ProgressSnapshot, 0, len(t.jobs))
	for docID, p := range t.jobs {
		out = append(out, p.view(docID))
	}
	return out
}

func (p *docProgress) view(docID string) ProgressSnapshot {
	return ProgressSnapshot{
		DocID:          docID,
		Stage:          string(p.stage),
		ChunksTotal:    p.chunksTotal,
		ElapsedSeconds: int(time.Since(p.started).Seconds()),
	}
}
