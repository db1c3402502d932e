package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueueRunsTask(t *testing.T) {
	q := New(2)

	var ran atomic.Bool
	task := q.Enqueue(context.Background(), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	if err := task.Wait(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !ran.Load() {
		t.Fatal("task did not run")
	}
}

func TestConcurrencyBound(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		tasks int
	}{
		{"limit 1", 1, 10},
		{"limit 2", 2, 10},
		{"limit 4", 4, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(tt.limit)

			var running, maxRunning atomic.Int64
			for i := 0; i < tt.tasks; i++ {
				q.Enqueue(context.Background(), func(ctx context.Context) error {
					n := running.Add(1)
					for {
						max := maxRunning.Load()
						if n <= max || maxRunning.CompareAndSwap(max, n) {
							break
						}
					}
					time.Sleep(2 * time.Millisecond)
					running.Add(-1)
					return nil
				})
			}

			if err := q.OnIdle(context.Background()); err != nil {
				t.Fatalf("OnIdle failed: %v", err)
			}
			if got := maxRunning.Load(); got > int64(tt.limit) {
				t.Errorf("observed %d concurrent tasks, limit is %d", got, tt.limit)
			}
		})
	}
}

func TestFIFOAdmission(t *testing.T) {
	q := New(1)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		i := i
		q.Enqueue(context.Background(), func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	if err := q.OnIdle(context.Background()); err != nil {
		t.Fatalf("OnIdle failed: %v", err)
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("admission order broken at %d: got %d", i, got)
		}
	}
}

type ctxKey struct{}

func TestTaskReceivesOwnContext(t *testing.T) {
	q := New(1)
	release := make(chan struct{})

	q.Enqueue(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	var mu sync.Mutex
	got := make(map[string]bool)
	var tasks []*Task
	for _, label := range []string{"first", "second", "third"} {
		label := label
		ctx := context.WithValue(context.Background(), ctxKey{}, label)
		tasks = append(tasks, q.Enqueue(ctx, func(ctx context.Context) error {
			mu.Lock()
			got[label] = ctx.Value(ctxKey{}) == label
			mu.Unlock()
			return nil
		}))
	}

	close(release)
	for _, task := range tasks {
		if err := task.Wait(context.Background()); err != nil {
			t.Fatalf("task failed: %v", err)
		}
	}

	for _, label := range []string{"first", "second", "third"} {
		if !got[label] {
			t.Errorf("task %q did not receive the context it was enqueued with", label)
		}
	}
}

func TestTaskFailureIsolated(t *testing.T) {
	q := New(2)
	boom := errors.New("boom")

	failed := q.Enqueue(context.Background(), func(ctx context.Context) error {
		return boom
	})
	ok := q.Enqueue(context.Background(), func(ctx context.Context) error {
		return nil
	})

	if err := failed.Wait(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if err := ok.Wait(context.Background()); err != nil {
		t.Errorf("sibling task should not be affected, got %v", err)
	}
}

func TestOnIdleWhenAlreadyIdle(t *testing.T) {
	q := New(2)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := q.OnIdle(ctx); err != nil {
		t.Fatalf("OnIdle on fresh queue should return immediately: %v", err)
	}
}

func TestOnIdleContextCancelled(t *testing.T) {
	q := New(1)
	release := make(chan struct{})
	q.Enqueue(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.OnIdle(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}

	close(release)
	if err := q.OnIdle(context.Background()); err != nil {
		t.Fatalf("OnIdle after release failed: %v", err)
	}
}

func TestStats(t *testing.T) {
	q := New(1)
	release := make(chan struct{})

	q.Enqueue(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})
	q.Enqueue(context.Background(), func(ctx context.Context) error {
		return nil
	})

	stats := q.Stats()
	if stats.Running != 1 {
		t.Errorf("expected 1 running, got %d", stats.Running)
	}
	if stats.Queued != 1 {
		t.Errorf("expected 1 queued, got %d", stats.Queued)
	}

	close(release)
	if err := q.OnIdle(context.Background()); err != nil {
		t.Fatalf("OnIdle failed: %v", err)
	}

	stats = q.Stats()
	if stats.Completed != 2 {
		t.Errorf("expected 2 completed, got %d", stats.Completed)
	}
	if stats.Running != 0 || stats.Queued != 0 {
		t.Errorf("expected empty queue, got %+v", stats)
	}
}

func TestObserverAdvisory(t *testing.T) {
	q := New(2)

	var calls atomic.Int64
	q.SetObserver(func(s Stats) { calls.Add(1) })

	for i := 0; i < 5; i++ {
		q.Enqueue(context.Background(), func(ctx context.Context) error { return nil })
	}
	if err := q.OnIdle(context.Background()); err != nil {
		t.Fatalf("OnIdle failed: %v", err)
	}

	if calls.Load() == 0 {
		t.Error("observer was never invoked")
	}

	// Detached observer must not fire again.
	q.SetObserver(nil)
	before := calls.Load()
	q.Enqueue(context.Background(), func(ctx context.Context) error { return nil })
	if err := q.OnIdle(context.Background()); err != nil {
		t.Fatalf("OnIdle failed: %v", err)
	}
	if calls.Load() != before {
		t.Error("observer fired after being detached")
	}
}
