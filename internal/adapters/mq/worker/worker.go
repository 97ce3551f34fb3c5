package worker

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/budgetgm/internal/adapters/mq/queue"
	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/roster"
	"github.com/okian/budgetgm/pkg/logger"
	"github.com/okian/budgetgm/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Simulator runs one season for a roster.
type Simulator interface {
	Simulate(ctx context.Context, r *roster.Roster, rng *rand.Rand) (model.SimulationResult, error)
}

// Queue defines how workers receive jobs and how the pool submits them.
type Queue interface {
	Enqueue(ctx context.Context, job queue.Job) error
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes simulation jobs from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing jobs.
type InMemoryWorker struct {
	queue     Queue
	simulator Simulator
	name      string

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, simulator Simulator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		simulator: simulator,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// Ends the dequeue goroutine with the worker, so a job it already holds
	// is answered rather than stranded.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := w.queue.Dequeue(runCtx)
	for {
		select {
		case <-w.shutdown:
			return
		default:
		}
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(job)
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(job queue.Job) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// the caller already gave up
	if err := ctx.Err(); err != nil {
		job.Respond(queue.Result{Err: err})
		return
	}

	metrics.AddActiveWorkers(1)
	defer metrics.AddActiveWorkers(-1)

	start := time.Now()
	season, err := w.simulator.Simulate(ctx, job.Roster, job.Rand)
	latency := float64(time.Since(start).Milliseconds())
	metrics.RecordWorkerProcessingLatency(latency)

	if err != nil {
		metrics.RecordSimulationError()
		metrics.RecordWorkerError()
		w.logger.Warn(ctx, "simulation failed", logger.String("job", job.ID), logger.Error(err))
		job.Respond(queue.Result{Err: err})
		return
	}
	metrics.RecordSimulation(latency)
	if !job.Respond(queue.Result{Season: season}) {
		w.logger.Debug(ctx, "simulation result dropped", logger.String("job", job.ID))
	}
}

// Pool manages multiple workers and exposes them as a Simulator.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	started atomic.Bool

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses one worker per CPU;
// opts apply to every worker.
func NewPool(workerCount int, q Queue, simulator Simulator, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, simulator,
			append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "simulation workers started", logger.Int("workers", len(p.workers)))
}

// Simulate queues a season for r and waits for a worker to run it. A full
// queue fails fast with queue.ErrBackpressure.
func (p *Pool) Simulate(ctx context.Context, r *roster.Roster, rng *rand.Rand) (model.SimulationResult, error) {
	reply := make(chan queue.Result, 1)
	job := queue.Job{ID: uuid.NewString(), Ctx: ctx, Roster: r, Rand: rng, Reply: reply}
	if err := p.queue.Enqueue(ctx, job); err != nil {
		return model.SimulationResult{}, err
	}
	select {
	case res := <-reply:
		return res.Season, res.Err
	case <-ctx.Done():
		return model.SimulationResult{}, fmt.Errorf("simulation %s: %w", job.ID, ctx.Err())
	}
}

// Shutdown closes the queue, lets workers drain what is already queued and
// stops any still running when ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.stopOnce.Do(func() { close(w.shutdown) })
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
