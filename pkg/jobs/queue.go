package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when a job cannot be buffered without blocking.
var ErrQueueFull = errors.New("queue is full")

// Job is a unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A returned error schedules a retry.
type Handler func(context.Context, Job) error

// DeadLetterFunc receives jobs that exhausted their retries.
type DeadLetterFunc func(Job, error)

// QueueConfig configures worker pool behaviour.
// DrainTimeout bounds how long Stop waits for buffered jobs before cancelling them.
type QueueConfig struct {
	Workers      int
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	DrainTimeout time.Duration
	Logger       *zap.Logger
	DeadLetter   DeadLetterFunc
}

// Queue dispatches jobs to a fixed pool of goroutines. Enqueue never blocks
// the caller, so request handlers can hand work off without waiting on it.
type Queue struct {
	name    string
	handler Handler

	workers      int
	bufferSize   int
	maxRetries   int
	retryDelay   time.Duration
	drainTimeout time.Duration
	logger       *zap.Logger
	deadLetter   DeadLetterFunc

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a queue that runs handler for every job.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:         name,
		handler:      handler,
		workers:      cfg.Workers,
		bufferSize:   cfg.BufferSize,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		drainTimeout: cfg.DrainTimeout,
		logger:       cfg.Logger.With(zap.String("queue", name)),
		deadLetter:   cfg.DeadLetter,
	}
}

// Start launches the workers. Calling it again has no effect. Cancelling ctx
// does not stop the workers; only Stop does, so buffered jobs are not lost.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.jobs = make(chan Job, q.bufferSize)
	q.ctx, q.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(q.ctx, q.jobs)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop closes intake and lets the workers drain buffered jobs. Jobs still
// running after DrainTimeout see their context cancelled, and whatever is left
// in the buffer is dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	jobs, cancel := q.jobs, q.cancel
	close(jobs)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	timer := time.NewTimer(q.drainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		q.logger.Warn("queue drain timed out", zap.Int("buffered", len(jobs)))
		cancel()
		<-drained
	}
	cancel()
	q.logger.Info("queue stopped", zap.Int("dropped", len(jobs)))
}

// Enqueue buffers a job for the workers.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// Len reports the number of buffered jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *Queue) worker(ctx context.Context, jobs <-chan Job) {
	defer q.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		job, ok := <-jobs
		if !ok {
			return
		}
		if err := q.handler(ctx, job); err != nil {
			q.handleFailure(ctx, job, err)
		}
	}
}

func (q *Queue) handleFailure(ctx context.Context, job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempts", job.Attempt),
			zap.Error(err),
		)
		if q.deadLetter != nil {
			q.deadLetter(job, err)
		}
		return
	}
	q.logger.Warn("job failed, retrying",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	)

	// Retries run on the same worker with a linear backoff.
	timer := time.NewTimer(q.retryDelay * time.Duration(job.Attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	if err := q.handler(ctx, job); err != nil {
		q.handleFailure(ctx, job, err)
	}
}
