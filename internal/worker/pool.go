package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/queue"
)

// MetricHooks carries the metric callback functions injected by main.
// Nil fields are replaced with no-ops by WithDefaults.
type MetricHooks struct {
	OnSent         func(source domain.Source, latency time.Duration)
	OnFailed       func(source domain.Source, terminal bool)
	OnCancelled    func(source domain.Source)
	OnDeduplicated func(source domain.Source)
	OnQueueDepth   func(depth int)
}

func (h MetricHooks) WithDefaults() MetricHooks {
	if h.OnSent == nil {
		h.OnSent = func(domain.Source, time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.Source, bool) {}
	}
	if h.OnCancelled == nil {
		h.OnCancelled = func(domain.Source) {}
	}
	if h.OnDeduplicated == nil {
		h.OnDeduplicated = func(domain.Source) {}
	}
	if h.OnQueueDepth == nil {
		h.OnQueueDepth = func(int) {}
	}
	return h
}

// Runner is the single consumer of the sequential queue. Exactly one
// goroutine pulls jobs, so at most one transport call is ever in flight and
// each job finishes before the next one starts.
type Runner struct {
	q      *queue.Sequential
	d      *Dispatcher
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewRunner(q *queue.Sequential, d *Dispatcher, logger *zap.Logger) *Runner {
	return &Runner{q: q, d: d, logger: logger}
}

// Start launches the consumer goroutine. Cancelling ctx interrupts backoff
// and rate-limit waits; the loop exits once the queue is closed or ctx is done.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

// Wait blocks until the consumer goroutine has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context) {
	r.logger.Info("dispatch runner started")
	for {
		job, ok := r.q.Dequeue(ctx)
		if !ok {
			r.logger.Info("dispatch runner stopping")
			return
		}
		r.d.hooks.OnQueueDepth(r.q.Depth())
		job.Resolve(r.process(ctx, job))
	}
}

func (r *Runner) process(ctx context.Context, job queue.Job) domain.SendResult {
	// A watch deleted between enqueue and dequeue is drained, never dispatched.
	if job.Token.Cancelled() {
		r.d.hooks.OnCancelled(job.Payload.Source)
		r.logger.Debug("draining job of cancelled watch",
			zap.String("watch_id", job.Token.WatchID()),
			zap.String("key", job.Fingerprint),
		)
		return domain.SendResult{Cancelled: true}
	}
	return r.d.Dispatch(ctx, job)
}
