package gbif

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueBoundsConcurrency(t *testing.T) {
	q := NewQueue(3)
	ctx := context.Background()

	var running, maxRunning atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Do(ctx, func() error {
				n := running.Add(1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if max := maxRunning.Load(); max > 3 {
		t.Errorf("Expected at most 3 concurrent tasks, observed %d", max)
	}
	if q.InFlight() != 0 {
		t.Errorf("Expected 0 in-flight after completion, got %d", q.InFlight())
	}
}

func TestQueueDoPropagatesError(t *testing.T) {
	q := NewQueue(1)
	want := context.DeadlineExceeded

	err := q.Do(context.Background(), func() error { return want })
	if err != want {
		t.Errorf("Expected fn error to propagate, got %v", err)
	}
}

func TestQueueWaitCancelled(t *testing.T) {
	q := NewQueue(1)

	release := make(chan struct{})
	go q.Do(context.Background(), func() error {
		<-release
		return nil
	})

	// Let the first task claim the only slot.
	for q.InFlight() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Do(ctx, func() error { return nil })
	if err != context.DeadlineExceeded {
		t.Errorf("Expected DeadlineExceeded while queued, got %v", err)
	}
	close(release)
}

func TestQueueCapacityFloor(t *testing.T) {
	q := NewQueue(0)
	if q.Capacity() != 1 {
		t.Errorf("Expected capacity floor of 1, got %d", q.Capacity())
	}
}
