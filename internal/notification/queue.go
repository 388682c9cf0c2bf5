package notification

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned when a job cannot be buffered without blocking.
	ErrQueueFull = errors.New("notification queue full")
	// ErrQueueClosed is returned once the queue has been closed.
	ErrQueueClosed = errors.New("notification queue closed")
)

// Queue decouples notification producers from delivery. Enqueue must not block
// on delivery; Dequeue blocks until a job arrives, ctx ends or the queue closes.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
	Close() error
}

// MemoryQueue is a bounded in-process queue.
type MemoryQueue struct {
	jobs      chan Job
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue buffers up to size jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryQueue{jobs: make(chan Job, size), done: make(chan struct{})}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	case <-q.done:
		return Job{}, ErrQueueClosed
	}
}

// Close stops consumers. Jobs still buffered are discarded.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

// Len reports the number of buffered jobs.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}
