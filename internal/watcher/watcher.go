// Package watcher feeds new files in the documents directory into the ingest
// queue.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Enqueuer accepts file paths for ingestion.
type Enqueuer interface {
	Enqueue(path string) bool
}

// DefaultQuietPeriod is how long a file must go without events before it is
// queued.
const DefaultQuietPeriod = 500 * time.Millisecond

// Watcher watches one directory (not recursively) for new files with a
// supported extension. A file is queued once it has been quiet for the
// quiet period, and at most once per process unless Forget is called, since
// the index is append-only and re-ingesting would duplicate chunks.
type Watcher struct {
	fs         *fsnotify.Watcher
	dir        string
	extensions map[string]struct{}
	queue      Enqueuer
	onQueued   func()
	quiet      time.Duration

	mu      sync.Mutex
	seen    map[string]struct{}
	pending map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.quiet = d
		}
	}
}

// New creates a Watcher. onQueued, if non-nil, is called after each path is
// queued.
func New(dir string, extensions []string, queue Enqueuer, onQueued func(), opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}

	w := &Watcher{
		fs:         fw,
		dir:        dir,
		extensions: exts,
		queue:      queue,
		onQueued:   onQueued,
		quiet:      DefaultQuietPeriod,
		seen:       make(map[string]struct{}),
		pending:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// MarkSeen records paths that are already indexed so later events for them
// are ignored. It is safe to call while Run is active.
func (w *Watcher) MarkSeen(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		path := filepath.Clean(p)
		w.seen[path] = struct{}{}
		if t, ok := w.pending[path]; ok {
			t.Stop()
			delete(w.pending, path)
		}
	}
}

// Forget clears paths from the seen set so the next event for them queues
// them again. Used for files that were queued before they had any content.
func (w *Watcher) Forget(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		delete(w.seen, filepath.Clean(p))
	}
}

// Run watches until ctx is cancelled. It closes the underlying watcher on
// return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	defer w.stopPending()

	if err := w.fs.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	log.Printf("watcher: watching %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.watched(event.Name) {
		return
	}

	path := filepath.Clean(event.Name)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, dup := w.seen[path]; dup {
		return
	}
	// restart the quiet period on every event so a file still being written
	// is not queued half-empty
	if t, ok := w.pending[path]; ok {
		t.Reset(w.quiet)
		return
	}
	w.pending[path] = time.AfterFunc(w.quiet, func() { w.flush(path) })
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	if _, dup := w.seen[path]; dup {
		w.mu.Unlock()
		return
	}
	w.seen[path] = struct{}{}
	w.mu.Unlock()

	if w.queue.Enqueue(path) {
		log.Printf("watcher: queued %s", filepath.Base(path))
		if w.onQueued != nil {
			w.onQueued()
		}
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) watched(path string) bool {
	base := filepath.Base(path)
	// editor swap files and partial downloads
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}
