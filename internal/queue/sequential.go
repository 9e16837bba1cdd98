package queue

import (
	"context"
	"sync"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// Sequential is an unbounded FIFO with a single intended consumer.
//
// Enqueue never blocks the caller: timer callbacks and HTTP handlers hand off
// a job and return. Ordering is strict submission order; there is no priority.
type Sequential struct {
	mu     sync.Mutex
	items  []Job
	closed bool
	ready  chan struct{}
}

func New() *Sequential {
	return &Sequential{ready: make(chan struct{}, 1)}
}

// Enqueue appends a job. Returns ErrQueueClosed after Close.
func (q *Sequential) Enqueue(job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.ErrQueueClosed
	}
	q.items = append(q.items, job)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue blocks until a job is available, the queue is closed, or ctx is done.
// Returns (Job{}, false) in the latter two cases.
func (q *Sequential) Dequeue(ctx context.Context) (Job, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Job{}, false
		}
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = Job{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return job, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Job{}, false
		}
	}
}

// Close stops intake and returns the jobs that were still waiting, in order,
// so the owner can resolve them.
func (q *Sequential) Close() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	rest := q.items
	q.items = nil

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return rest
}

// Depth returns the number of jobs waiting to be dispatched.
func (q *Sequential) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
