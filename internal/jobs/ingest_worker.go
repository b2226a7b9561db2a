package jobs

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for a failed ingest job
	MaxRetries = 3
)

// IngestJob is a file waiting to be added to the index.
type IngestJob struct {
	Path    string
	Retries int
	LastErr string
}

// IngestQueue holds pending ingest jobs in arrival order. A path already
// pending is not queued twice.
type IngestQueue struct {
	mu      sync.Mutex
	pending []IngestJob
	queued  map[string]struct{}
}

// NewIngestQueue creates an empty queue.
func NewIngestQueue() *IngestQueue {
	return &IngestQueue{queued: make(map[string]struct{})}
}

// Enqueue adds path unless it is already pending. It reports whether the
// path was added.
func (q *IngestQueue) Enqueue(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queued[path]; ok {
		return false
	}
	q.queued[path] = struct{}{}
	q.pending = append(q.pending, IngestJob{Path: path})
	return true
}

// Claim removes and returns every pending job.
func (q *IngestQueue) Claim() []IngestJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.pending
	q.pending = nil
	for _, j := range jobs {
		delete(q.queued, j.Path)
	}
	return jobs
}

// Requeue puts a failed job back, unless a fresh job for the same path
// arrived meanwhile.
func (q *IngestQueue) Requeue(job IngestJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queued[job.Path]; ok {
		return
	}
	q.queued[job.Path] = struct{}{}
	q.pending = append(q.pending, job)
}

// Len returns the number of pending jobs.
func (q *IngestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Ingester adds files to the document index.
type Ingester interface {
	Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error)
}

// IngestWorker drains the ingest queue into the index, one batch per poll.
type IngestWorker struct {
	queue    *IngestQueue
	ingester Ingester
	onSkip   func(paths ...string)
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(queue *IngestQueue, ingester Ingester) *IngestWorker {
	return &IngestWorker{
		queue:    queue,
		ingester: ingester,
	}
}

// SetSkipHandler registers fn to receive the full paths of files a batch
// skipped, typically files that were still empty when they were queued.
// Call it before the worker starts.
func (w *IngestWorker) SetSkipHandler(fn func(paths ...string)) {
	w.onSkip = fn
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs := w.queue.Claim()
	if len(jobs) == 0 {
		return nil
	}

	log.Printf("jobs: ingesting %d queued files", len(jobs))

	paths := make([]string, len(jobs))
	for i, j := range jobs {
		paths[i] = j.Path
	}

	report, err := w.ingester.Ingest(ctx, paths)
	if err != nil {
		w.handleBatchFailure(jobs, err)
		return fmt.Errorf("failed to ingest batch: %w", err)
	}

	if len(report.Skipped) > 0 {
		log.Printf("jobs: skipped unreadable files: %v", report.Skipped)
		if w.onSkip != nil {
			w.onSkip(skippedPaths(paths, report.Skipped)...)
		}
	}
	log.Printf("jobs: batch complete, %d chunks added, index size %d", report.ChunksAdded, report.IndexSize)
	return nil
}

// handleBatchFailure requeues every job of a failed batch with retry logic
func (w *IngestWorker) handleBatchFailure(jobs []IngestJob, batchErr error) {
	for _, job := range jobs {
		job.Retries++
		job.LastErr = batchErr.Error()
		if job.Retries >= MaxRetries {
			log.Printf("jobs: %s exceeded max retries (%d), dropping: %v", job.Path, MaxRetries, batchErr)
			continue
		}
		log.Printf("jobs: %s will be retried (attempt %d/%d)", job.Path, job.Retries, MaxRetries)
		w.queue.Requeue(job)
	}
}

// skippedPaths maps the base names in a report back to the queued paths.
func skippedPaths(paths, names []string) []string {
	skipped := make(map[string]struct{}, len(names))
	for _, n := range names {
		skipped[n] = struct{}{}
	}
	var out []string
	for _, p := range paths {
		if _, ok := skipped[filepath.Base(p)]; ok {
			out = append(out, p)
		}
	}
	return out
}
