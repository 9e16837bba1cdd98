package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/cancellation"
	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/queue"
	"github.com/notifyhub/deadline-reminders/internal/worker"
)

func await(t *testing.T, job queue.Job) domain.SendResult {
	t.Helper()
	select {
	case res := <-job.Result:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("job was never resolved")
		return domain.SendResult{}
	}
}

func TestRunner_ProcessesInFIFOOrder(t *testing.T) {
	f := newFixture()
	q := queue.New()
	r := worker.NewRunner(q, f.d, zap.NewNop())

	var jobs []queue.Job
	for _, title := range []string{"a", "b", "c"} {
		p := payload()
		p.Title = title
		job := queue.NewJob(p, nil, start)
		require.NoError(t, q.Enqueue(job))
		jobs = append(jobs, job)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	for _, job := range jobs {
		assert.True(t, await(t, job).Success)
	}

	var titles []string
	for _, p := range f.prov.Payloads() {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"a", "b", "c"}, titles)

	q.Close()
	r.Wait()
}

func TestRunner_DrainsCancelledWatchWithoutSending(t *testing.T) {
	f := newFixture()
	q := queue.New()
	r := worker.NewRunner(q, f.d, zap.NewNop())
	reg := cancellation.NewRegistry()

	job := queue.NewJob(payload(), reg.Acquire("w1"), start)
	require.NoError(t, q.Enqueue(job))
	reg.Cancel("w1", start)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	res := await(t, job)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 0, f.prov.Calls())
	assert.Empty(t, f.log.Entries())

	q.Close()
	r.Wait()
}

func TestRunner_StopsOnContextCancel(t *testing.T) {
	f := newFixture()
	r := worker.NewRunner(queue.New(), f.d, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() { r.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
