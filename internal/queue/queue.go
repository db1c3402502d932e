// Package queue implements a bounded-concurrency task queue.
//
// Admission is unbounded: Enqueue never blocks. Execution is capped at the
// configured limit, with strict FIFO admission into the running set as
// capacity frees up. Completion order is whatever task latencies allow.
package queue

import (
	"context"
	"sync"
)

// Task is the future returned by [Queue.Enqueue]. It resolves when the
// enqueued function returns; failures stay local to the task.
type Task struct {
	fn   func(context.Context) error
	ctx  context.Context
	done chan struct{}
	err  error
}

// Done returns a channel closed when the task has completed or failed.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the task's error. Only valid after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task completes or ctx is cancelled.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is an advisory snapshot of queue occupancy.
type Stats struct {
	Queued    int // Tasks admitted but not yet running
	Running   int // Tasks currently executing
	Completed int // Tasks finished, successfully or not
}

// Observer receives stats snapshots after scheduling transitions. Purely
// advisory; it never influences scheduling.
type Observer func(Stats)

// Queue runs enqueued tasks with at most limit executing concurrently.
type Queue struct {
	limit int

	mu        sync.Mutex
	pending   []*Task
	running   int
	completed int
	idleChans []chan struct{}
	observer  Observer
}

// New creates a queue that runs at most limit tasks concurrently.
// A limit below 1 is treated as 1.
func New(limit int) *Queue {
	if limit < 1 {
		limit = 1
	}
	return &Queue{limit: limit}
}

// Limit returns the configured concurrency bound.
func (q *Queue) Limit() int { return q.limit }

// SetObserver installs the stats observer. Pass nil to detach.
func (q *Queue) SetObserver(fn Observer) {
	q.mu.Lock()
	q.observer = fn
	q.mu.Unlock()
}

// Enqueue admits fn and returns its future. fn starts as soon as a slot in
// the running set frees up, in FIFO admission order. ctx is passed through
// to fn; the queue itself never cancels tasks.
func (q *Queue) Enqueue(ctx context.Context, fn func(context.Context) error) *Task {
	t := &Task{fn: fn, ctx: ctx, done: make(chan struct{})}

	q.mu.Lock()
	q.pending = append(q.pending, t)
	q.dispatchLocked()
	observer, stats := q.observer, q.statsLocked()
	q.mu.Unlock()

	if observer != nil {
		observer(stats)
	}
	return t
}

// dispatchLocked starts pending tasks while capacity allows. Caller holds mu.
func (q *Queue) dispatchLocked() {
	for q.running < q.limit && len(q.pending) > 0 {
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.running++
		go q.run(t)
	}
}

func (q *Queue) run(t *Task) {
	t.err = t.fn(t.ctx)
	close(t.done)

	q.mu.Lock()
	q.running--
	q.completed++
	q.dispatchLocked()
	if q.running == 0 && len(q.pending) == 0 {
		for _, ch := range q.idleChans {
			close(ch)
		}
		q.idleChans = nil
	}
	observer, stats := q.observer, q.statsLocked()
	q.mu.Unlock()

	if observer != nil {
		observer(stats)
	}
}

// OnIdle blocks until no tasks are queued or running, or until ctx is
// cancelled. Returns immediately if the queue is already idle.
func (q *Queue) OnIdle(ctx context.Context) error {
	q.mu.Lock()
	if q.running == 0 && len(q.pending) == 0 {
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.idleChans = append(q.idleChans, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a point-in-time occupancy snapshot.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statsLocked()
}

func (q *Queue) statsLocked() Stats {
	return Stats{
		Queued:    len(q.pending),
		Running:   q.running,
		Completed: q.completed,
	}
}
