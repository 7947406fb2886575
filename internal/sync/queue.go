// Package sync implements the concept/instance snapshot synchronization
// engine: the serialized job queue, delta ordering filter, functional-change
// and language-variant comparators, the merge services and the driver that
// orchestrates them per incoming change set.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of queued work.
type Job func(ctx context.Context) error

// JobQueue executes jobs one at a time in FIFO enqueue order. A failing job
// is logged and the next job is attempted; an empty queue polls again after
// the idle interval. The projection store has no per-row locking, so this
// serialization is the engine's only concurrency-safety mechanism.
type JobQueue struct {
	logger *slog.Logger
	idle   time.Duration

	mu    sync.Mutex
	tasks []Job
	wake  chan struct{}
}

func NewJobQueue(logger *slog.Logger, idleInterval time.Duration) *JobQueue {
	if idleInterval <= 0 {
		idleInterval = time.Second
	}
	return &JobQueue{
		logger: logger,
		idle:   idleInterval,
		wake:   make(chan struct{}, 1),
	}
}

// AddJob enqueues a job. Safe for concurrent use; never blocks.
func (q *JobQueue) AddJob(job Job) {
	if q == nil || job == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len reports the number of jobs waiting to run.
func (q *JobQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Run consumes the queue until the context is canceled. At most one job is
// in flight at any time; a job once started runs to completion or failure.
func (q *JobQueue) Run(ctx context.Context) {
	if q == nil {
		return
	}
	timer := time.NewTimer(q.idle)
	defer timer.Stop()

	for {
		job, ok := q.pop()
		if !ok {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(q.idle)
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
			case <-timer.C:
			}
			continue
		}

		if ctx.Err() != nil {
			return
		}
		if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
			q.log("queued job failed", "error", err)
		}
	}
}

func (q *JobQueue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	job := q.tasks[0]
	q.tasks = q.tasks[1:]
	return job, true
}

func (q *JobQueue) log(msg string, attrs ...any) {
	if q.logger == nil {
		return
	}
	fields := []any{"component", "job_queue"}
	fields = append(fields, attrs...)
	q.logger.Warn(msg, fields...)
}
