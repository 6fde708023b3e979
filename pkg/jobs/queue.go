package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Enqueue once the queue has been stopped or was never started.
var ErrQueueClosed = errors.New("queue closed")

// Job is a deferred task such as an email or a file cleanup.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	// RetryDelay grows linearly with the attempt number.
	RetryDelay time.Duration
	// OnDiscard is called for jobs that exhausted their retries.
	OnDiscard func(Job, error)
	Logger    *zap.Logger
}

// Stats counts job outcomes since the queue was created.
type Stats struct {
	Processed int64
	Retried   int64
	Discarded int64
}

// Queue is an in-memory job dispatcher backed by goroutines. Jobs still buffered when
// the queue stops are handled once more, without retries, before Stop returns.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.RWMutex
	started bool
	closed  bool

	processed atomic.Int64
	retried   atomic.Int64
	discarded atomic.Int64
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Calls after the first are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.cfg.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new jobs, cancels pending retries and waits for workers to drain the buffer.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.closed {
		q.closed = true
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cancel()
	q.mu.Unlock()

	q.retries.Wait()
	q.wg.Wait()
	q.cfg.Logger.Info("queue stopped", zap.String("queue", q.name), zap.Int64("processed", q.processed.Load()))
}

// Enqueue pushes a job onto the queue. It blocks while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started || q.closed {
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-q.ctx.Done():
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	case q.jobs <- job:
		return nil
	}
}

// Stats returns a snapshot of job outcome counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Processed: q.processed.Load(),
		Retried:   q.retried.Load(),
		Discarded: q.discarded.Load(),
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			q.drain()
			return
		case job := <-q.jobs:
			if err := q.run(q.ctx, job); err != nil {
				q.handleFailure(job, err)
			}
		}
	}
}

// drain handles whatever is still buffered once, detached from the cancelled context.
func (q *Queue) drain() {
	ctx := context.Background()
	for {
		select {
		case job := <-q.jobs:
			if err := q.run(ctx, job); err != nil {
				q.discard(job, err)
			}
		default:
			return
		}
	}
}

func (q *Queue) run(ctx context.Context, job Job) error {
	err := q.handler(ctx, job)
	if err == nil {
		q.processed.Add(1)
	}
	return err
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.discard(job, err)
		return
	}
	q.retried.Add(1)
	q.cfg.Logger.Warn("job failed, retrying",
		zap.String("queue", q.name),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	)

	q.retries.Add(1)
	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.cfg.RetryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.discard(j, fmt.Errorf("queue stopped before retry: %w", err))
		case <-timer.C:
			if enqueueErr := q.Enqueue(j); enqueueErr != nil {
				q.discard(j, enqueueErr)
			}
		}
	}(job)
}

func (q *Queue) discard(job Job, err error) {
	q.discarded.Add(1)
	q.cfg.Logger.Error("job discarded",
		zap.String("queue", q.name),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	)
	if q.cfg.OnDiscard != nil {
		q.cfg.OnDiscard(job, err)
	}
}
