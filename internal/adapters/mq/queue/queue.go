// Package queue is the bounded in-memory job queue in front of the
// simulation workers. A full queue rejects work instead of blocking.
package queue

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/roster"
	"github.com/okian/budgetgm/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Result is what a worker sends back for a Job.
type Result struct {
	Season model.SimulationResult
	Err    error
}

// Job is one season simulation request. Reply must have room for one
// Result so workers never block on a caller that gave up.
type Job struct {
	ID     string
	Ctx    context.Context //nolint:containedctx // the caller's deadline travels with the job
	Roster *roster.Roster
	Rand   *rand.Rand
	Reply  chan<- Result
}

// Respond delivers r without blocking; a missing or full reply channel
// drops it.
func (j Job) Respond(r Result) bool {
	if j.Reply == nil {
		return false
	}
	select {
	case j.Reply <- r:
		return true
	default:
		return false
	}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job, failing fast with ErrBackpressure when full.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue returns a channel of pending jobs, closed once the queue is
	// closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.observe()
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		return fmt.Errorf("enqueue %s: %w", job.ID, err)
	}

	select {
	case q.jobs <- job:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		return fmt.Errorf("enqueue %s: %w", job.ID, ErrBackpressure)
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
// When ctx ends, a job already taken off the queue is answered with ErrClosed.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for job := range q.jobs {
			select {
			case out <- job:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				// the reader is gone; answer the caller instead of dropping the job
				job.Respond(Result{Err: fmt.Errorf("%w: %w", ErrClosed, ctx.Err())})
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(context.Context) int {
	return q.observe()
}

// Close stops new enqueues; already queued jobs can still be drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}
