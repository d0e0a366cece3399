package gbif

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Queue bounds the number of in-flight outbound requests. Pending callers
// are admitted in FIFO order as slots free up. The queue carries no business
// logic; a slot is held for one HTTP round trip including its retries.
type Queue struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
}

// NewQueue creates a queue admitting at most maxConcurrent tasks at a time.
func NewQueue(maxConcurrent int) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Queue{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		capacity: int64(maxConcurrent),
	}
}

// Do runs fn once a slot is available, releasing the slot when fn returns.
// Waiting is aborted with the context error if ctx is cancelled first; a
// task already admitted runs to natural completion.
func (q *Queue) Do(ctx context.Context, fn func() error) error {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	q.inFlight.Add(1)
	defer func() {
		q.inFlight.Add(-1)
		q.sem.Release(1)
	}()
	return fn()
}

// InFlight returns the number of currently admitted tasks.
func (q *Queue) InFlight() int64 {
	return q.inFlight.Load()
}

// Capacity returns the maximum number of concurrent tasks.
func (q *Queue) Capacity() int64 {
	return q.capacity
}
