package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// State is the lifecycle position of a job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateRetrying  State = "retrying"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is the last known state of a job.
type Status struct {
	ID        string    `json:"jobId"`
	Type      string    `json:"type"`
	State     State     `json:"state"`
	Attempt   int       `json:"attempt"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Handler processes a job.
type Handler func(context.Context, Job) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var permanent permanentError
	return errors.As(err, &permanent)
}

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// MaxTracked bounds how many job statuses are remembered.
	MaxTracked int
	Logger     *zap.Logger
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	maxTracked int
	logger     *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	statusMu sync.RWMutex
	statuses map[string]Status
	order    []string
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		maxTracked: cfg.MaxTracked,
		logger:     cfg.Logger,
		jobs:       make(chan Job, cfg.BufferSize),
		statuses:   make(map[string]Status),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// Enqueue pushes a job onto the queue. It fails instead of blocking when the
// buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	fresh := job.Attempt == 0
	if fresh {
		q.track(job, StateQueued, nil)
	}

	select {
	case <-ctx.Done():
		if fresh {
			q.forget(job.ID)
		}
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	default:
		if fresh {
			q.forget(job.ID)
		}
		return fmt.Errorf("queue %s full", q.name)
	}
}

// Status returns the last known status of job id.
func (q *Queue) Status(id string) (Status, bool) {
	q.statusMu.RLock()
	defer q.statusMu.RUnlock()
	status, ok := q.statuses[id]
	return status, ok
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.track(job, StateRunning, nil)
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
				continue
			}
			q.track(job, StateSucceeded, nil)
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if IsPermanent(err) || job.Attempt > q.maxRetries {
		q.track(job, StateFailed, err)
		q.logger.Error("job failed",
			zap.String("queue", q.name),
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
		return
	}
	q.track(job, StateRetrying, err)
	q.logger.Warn("job failed, retrying",
		zap.String("queue", q.name),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	)

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.track(j, StateFailed, err)
				q.logger.Error("failed to requeue job", zap.String("queue", q.name), zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}

func (q *Queue) track(job Job, state State, err error) {
	status := Status{
		ID:        job.ID,
		Type:      job.Type,
		State:     state,
		Attempt:   job.Attempt,
		UpdatedAt: time.Now().UTC(),
	}
	if err != nil {
		status.Error = err.Error()
	}

	q.statusMu.Lock()
	defer q.statusMu.Unlock()
	if _, exists := q.statuses[job.ID]; !exists {
		// Evicted or never queued.
		if state != StateQueued {
			return
		}
		q.order = append(q.order, job.ID)
		if len(q.order) > q.maxTracked {
			delete(q.statuses, q.order[0])
			q.order = q.order[1:]
		}
	}
	q.statuses[job.ID] = status
}

func (q *Queue) forget(id string) {
	q.statusMu.Lock()
	defer q.statusMu.Unlock()
	delete(q.statuses, id)
	for i, tracked := range q.order {
		if tracked == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}
