package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrQueueFull is returned when the buffer is at capacity; callers fall back
// to the scheduled sweep, which picks the receipt up later.
var ErrQueueFull = errors.New("processing queue is full")

// ErrQueueClosed is returned once Shutdown has begun.
var ErrQueueClosed = errors.New("processing queue is shut down")

// Handler processes one receipt. Errors are logged, not retried here; the
// scheduled sweep retries FAILED receipts.
type Handler func(ctx context.Context, receiptID string) error

// MemoryQueue is an in-process Queue backed by a buffered channel and a
// fixed worker pool. Jobs for a receipt already in flight are dropped
// unless forced.
type MemoryQueue struct {
	logger  *slog.Logger
	handler Handler
	jobs    chan Job

	mu       sync.Mutex
	inFlight map[string]struct{}
	closed   bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewMemoryQueue starts workers goroutines draining a buffer of size cap.
func NewMemoryQueue(workers, capacity int, handler Handler, logger *slog.Logger) *MemoryQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 2
	}
	if capacity <= 0 {
		capacity = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &MemoryQueue{
		logger:   logger,
		handler:  handler,
		jobs:     make(chan Job, capacity),
		inFlight: map[string]struct{}{},
		cancel:   cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	return q
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	if job.TraceID == "" {
		job.TraceID = uuid.New().String()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if _, dup := q.inFlight[job.ReceiptID]; dup && !job.Force {
		q.mu.Unlock()
		q.logger.Debug("async.enqueue_deduplicated", "receipt_id", job.ReceiptID, "trace_id", job.TraceID)
		return nil
	}

	// The send stays under the mutex so Shutdown cannot close the channel
	// between the closed check and the send. It never blocks, the default
	// arm fires when the buffer is full.
	select {
	case q.jobs <- job:
		q.inFlight[job.ReceiptID] = struct{}{}
		q.mu.Unlock()
		q.logger.Debug("async.enqueued", "receipt_id", job.ReceiptID, "trace_id", job.TraceID)
		return nil
	default:
		q.mu.Unlock()
		q.logger.Warn("async.queue_full", "receipt_id", job.ReceiptID)
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for in-flight work, bounded by ctx.
func (q *MemoryQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.logger.Info("async.shutdown_complete")
	case <-ctx.Done():
		q.cancel()
		q.logger.Warn("async.shutdown_timeout")
	}
}

func (q *MemoryQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		start := time.Now()
		err := q.handler(ctx, job.ReceiptID)

		q.mu.Lock()
		delete(q.inFlight, job.ReceiptID)
		q.mu.Unlock()

		if err != nil {
			q.logger.Warn("async.job_failed",
				"worker", id,
				"receipt_id", job.ReceiptID,
				"trace_id", job.TraceID,
				"error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			continue
		}
		q.logger.Info("async.job_done",
			"worker", id,
			"receipt_id", job.ReceiptID,
			"trace_id", job.TraceID,
			"wait_ms", start.Sub(job.SubmittedAt).Milliseconds(),
			"elapsed_ms", time.Since(start).Milliseconds())
	}
}
