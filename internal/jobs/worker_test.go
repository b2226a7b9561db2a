package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIngester is a mock implementation of Ingester
type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	args := m.Called(ctx, paths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestReport), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("transient"))

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_NotifyProcessesBeforeTick tests that Notify skips the poll wait
func TestWorker_NotifyProcessesBeforeTick(t *testing.T) {
	called := make(chan struct{}, 1)
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Run(func(mock.Arguments) {
		select {
		case called <- struct{}{}:
		default:
		}
	}).Return(nil)

	worker := NewWorker(mockProcessor, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)
	worker.Notify()
	worker.Notify()

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("notify did not trigger processing")
	}
	worker.Stop()
}

func TestIngestQueue_DedupesPendingPaths(t *testing.T) {
	q := NewIngestQueue()
	assert.True(t, q.Enqueue("/docs/a.txt"))
	assert.False(t, q.Enqueue("/docs/a.txt"))
	assert.True(t, q.Enqueue("/docs/b.txt"))
	assert.Equal(t, 2, q.Len())

	jobs := q.Claim()
	assert.Equal(t, []IngestJob{{Path: "/docs/a.txt"}, {Path: "/docs/b.txt"}}, jobs)
	assert.Equal(t, 0, q.Len())

	assert.True(t, q.Enqueue("/docs/a.txt"), "claimed paths may be queued again")
}

func TestIngestQueue_RequeueSkipsFreshDuplicate(t *testing.T) {
	q := NewIngestQueue()
	q.Enqueue("/docs/a.txt")
	q.Requeue(IngestJob{Path: "/docs/a.txt", Retries: 1})

	jobs := q.Claim()
	require.Len(t, jobs, 1)
	assert.Equal(t, 0, jobs[0].Retries)
}

// TestIngestWorker_ProcessJobs_NoPendingJobs tests when there are no pending jobs
func TestIngestWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	mockIngester := new(MockIngester)
	worker := NewIngestWorker(NewIngestQueue(), mockIngester)

	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockIngester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

// TestIngestWorker_ProcessJobs_Success tests a batch ingest
func TestIngestWorker_ProcessJobs_Success(t *testing.T) {
	queue := NewIngestQueue()
	queue.Enqueue("/docs/leave.txt")
	queue.Enqueue("/docs/remote.txt")

	mockIngester := new(MockIngester)
	mockIngester.On("Ingest", mock.Anything, []string{"/docs/leave.txt", "/docs/remote.txt"}).Return(&domain.IngestReport{
		Ingested:    []string{"leave.txt"},
		Skipped:     []string{"remote.txt"},
		ChunksAdded: 2,
		IndexSize:   5,
	}, nil)

	worker := NewIngestWorker(queue, mockIngester)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, queue.Len())
	mockIngester.AssertExpectations(t)
}

// TestIngestWorker_ProcessJobs_ReportsSkippedPaths tests skipped files are
// handed back with their full paths
func TestIngestWorker_ProcessJobs_ReportsSkippedPaths(t *testing.T) {
	queue := NewIngestQueue()
	queue.Enqueue("/docs/leave.txt")
	queue.Enqueue("/docs/empty.txt")

	mockIngester := new(MockIngester)
	mockIngester.On("Ingest", mock.Anything, []string{"/docs/leave.txt", "/docs/empty.txt"}).Return(&domain.IngestReport{
		Ingested:    []string{"leave.txt"},
		Skipped:     []string{"empty.txt"},
		ChunksAdded: 1,
		IndexSize:   1,
	}, nil)

	var skipped []string
	worker := NewIngestWorker(queue, mockIngester)
	worker.SetSkipHandler(func(paths ...string) { skipped = append(skipped, paths...) })

	require.NoError(t, worker.ProcessJobs(context.Background()))
	assert.Equal(t, []string{"/docs/empty.txt"}, skipped)
}

// TestIngestWorker_ProcessJobs_FailureWithRetry tests failed batches are requeued
func TestIngestWorker_ProcessJobs_FailureWithRetry(t *testing.T) {
	queue := NewIngestQueue()
	queue.Enqueue("/docs/leave.txt")

	mockIngester := new(MockIngester)
	mockIngester.On("Ingest", mock.Anything, mock.Anything).Return(nil, errors.New("embedding failed"))

	worker := NewIngestWorker(queue, mockIngester)
	err := worker.ProcessJobs(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ingest batch")

	jobs := queue.Claim()
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].Retries)
	assert.Equal(t, "embedding failed", jobs[0].LastErr)
}

// TestIngestWorker_ProcessJobs_MaxRetriesExceeded tests jobs are dropped after max retries
func TestIngestWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	queue := NewIngestQueue()
	queue.Requeue(IngestJob{Path: "/docs/leave.txt", Retries: MaxRetries - 1})

	mockIngester := new(MockIngester)
	mockIngester.On("Ingest", mock.Anything, mock.Anything).Return(nil, errors.New("embedding failed"))

	worker := NewIngestWorker(queue, mockIngester)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 0, queue.Len())
}
