// Package worker provides the reusable decryption worker and the bounded
// slot pool that amortizes worker startup across sync tasks.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/facesync/internal/shared"
)

// Worker is the capability a pipeline task needs from its execution context:
// decrypting file content off the task's own goroutine.
type Worker interface {
	Decrypt(ctx context.Context, data, key []byte) ([]byte, error)
	Close() error
}

// Factory creates a new worker. Creation may be expensive (it typically
// spawns a dedicated goroutine or an external process), which is why the
// pool holds workers for its whole lifetime instead of creating one per task.
type Factory func() (Worker, error)

// slot holds one lazily-created worker. The mutex serializes first-use
// creation per slot; a failed creation leaves created=false so a later
// Acquire can retry.
type slot struct {
	mu      sync.Mutex
	worker  Worker
	created bool
}

// Pool is a fixed-size pool of lazily-created workers. Task ids hash onto
// slots by modulo, so ids congruent modulo the pool size always share a
// worker. Slots are never reassigned once created.
type Pool struct {
	factory Factory
	slots   []slot

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool with size empty slots. Panics if size < 1 or
// factory is nil, both programmer errors.
func NewPool(size int, factory Factory) *Pool {
	if size < 1 {
		panic(fmt.Sprintf("worker: pool size must be positive, got %d", size))
	}
	if factory == nil {
		panic("worker: nil factory")
	}
	return &Pool{
		factory: factory,
		slots:   make([]slot, size),
	}
}

// Size returns the number of slots, equal to the configured concurrency.
func (p *Pool) Size() int { return len(p.slots) }

// Acquire returns the worker for taskID's slot, creating it on first use.
//
// Concurrent acquires for different slots proceed independently; acquires
// racing on the same empty slot are serialized so the backing worker is
// created at most once. If creation fails the slot stays empty and the error
// wraps [shared.ErrWorkerInit]; retrying later is safe.
func (p *Pool) Acquire(taskID uint64) (Worker, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: pool is closed", shared.ErrWorkerInit)
	}
	p.mu.Unlock()

	s := &p.slots[taskID%uint64(len(p.slots))]

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.created {
		return s.worker, nil
	}

	w, err := p.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrWorkerInit, err)
	}

	s.worker = w
	s.created = true
	return w, nil
}

// Populated returns how many slots hold a created worker.
func (p *Pool) Populated() int {
	var n int
	for i := range p.slots {
		s := &p.slots[i]
		s.mu.Lock()
		if s.created {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// CloseAll terminates every populated slot's worker and marks the pool
// unusable. Not safe to call while acquires are in flight; the sync context
// drains its task queue first. Returns the first close error encountered.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var firstErr error
	for i := range p.slots {
		s := &p.slots[i]
		s.mu.Lock()
		if s.created {
			if err := s.worker.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to close worker slot %d: %w", i, err)
			}
			s.worker = nil
			s.created = false
		}
		s.mu.Unlock()
	}
	return firstErr
}
