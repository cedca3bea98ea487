// Package watch ingests documents dropped into an upload directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/docrag/internal/ingest"
)

// DefaultDebounce is how long a file must stay quiet before ingestion.
// Editors and copies emit several write events per file.
const DefaultDebounce = 500 * time.Millisecond

// Watcher submits files appearing in a directory to the ingest
// pipeline.
type Watcher struct {
	dir      string
	ownerID  string
	pipeline *ingest.Pipeline
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher over dir, ingesting on behalf of ownerID.
func New(dir, ownerID string, pipeline *ingest.Pipeline, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		ownerID:  ownerID,
		pipeline: pipeline,
		debounce: debounce,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until the context is cancelled. Files already present
// when the watch starts are ingested once up front.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	if err := w.sweepExisting(ctx); err != nil {
		return err
	}

	w.logger.Info("watching_upload_dir", slog.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			w.cancelTimers()
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

// sweepExisting ingests files that were dropped before the watch began.
func (w *Watcher) sweepExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("list upload directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.schedule(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// schedule arms (or re-arms) the debounce timer for a path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !ingest.SupportedFile(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.submit(ctx, path)
	})
}

func (w *Watcher) submit(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	docID, err := w.pipeline.Submit(ctx, w.ownerID, filepath.Base(path), path)
	if err != nil {
		w.logger.Warn("watch_ingest_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Info("watch_ingest_queued",
		slog.String("path", path),
		slog.String("doc_id", docID))
}

func (w *Watcher) cancelTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}
