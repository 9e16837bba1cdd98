package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/queue"
)

func job(title string) queue.Job {
	return queue.NewJob(domain.Payload{Source: domain.SourceChecklist, Title: title}, nil, time.Now())
}

func TestSequential_BasicEnqueueDequeue(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	if err := q.Enqueue(job("1")); err != nil {
		t.Fatal(err)
	}

	got, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected job, got nothing")
	}
	if got.Payload.Title != "1" {
		t.Fatalf("expected title=1, got %s", got.Payload.Title)
	}
}

// TestSequential_FIFO verifies jobs come out in submission order.
func TestSequential_FIFO(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = q.Enqueue(job(fmt.Sprint(i)))
	}
	for i := 0; i < 10; i++ {
		got, _ := q.Dequeue(ctx)
		if got.Payload.Title != fmt.Sprint(i) {
			t.Fatalf("position %d: got %q", i, got.Payload.Title)
		}
	}
}

// TestSequential_ContextCancellation verifies Dequeue returns (_, false)
// when the context is cancelled while blocking.
func TestSequential_ContextCancellation(t *testing.T) {
	q := queue.New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

func TestSequential_CloseReturnsRemainderAndRejects(t *testing.T) {
	q := queue.New()
	_ = q.Enqueue(job("a"))
	_ = q.Enqueue(job("b"))

	rest := q.Close()
	if len(rest) != 2 || rest[0].Payload.Title != "a" {
		t.Fatalf("unexpected remainder: %+v", rest)
	}
	if err := q.Enqueue(job("c")); err != domain.ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	if _, ok := q.Dequeue(context.Background()); ok {
		t.Fatal("expected Dequeue to report closed")
	}
}

func TestSequential_CloseWakesBlockedConsumer(t *testing.T) {
	q := queue.New()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after Close")
	}
}

// TestSequential_ConcurrentProducers verifies there are no races
// when multiple goroutines enqueue while one consumer drains.
func TestSequential_ConcurrentProducers(t *testing.T) {
	q := queue.New()

	const producers = 5
	const itemsPerProducer = 100
	const total = producers * itemsPerProducer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < itemsPerProducer; j++ {
				_ = q.Enqueue(job("id"))
			}
		}()
	}

	for i := 0; i < total; i++ {
		if _, ok := q.Dequeue(ctx); !ok {
			t.Fatalf("timeout: only received %d/%d jobs", i, total)
		}
	}
	wg.Wait()
	if d := q.Depth(); d != 0 {
		t.Fatalf("expected empty queue, depth=%d", d)
	}
}

func TestJob_ResolveOnce(t *testing.T) {
	j := job("x")
	j.Resolve(domain.SendResult{Success: true})
	j.Resolve(domain.SendResult{Cancelled: true})
	if res := <-j.Result; !res.Success {
		t.Fatalf("expected first resolution to win, got %+v", res)
	}
}

func TestNewJob_ClonesPayload(t *testing.T) {
	p := domain.Payload{Source: domain.SourceKanban, Title: "t", Items: []domain.EmailItem{{Text: "a"}}}
	j := queue.NewJob(p, nil, time.Now())
	p.Items[0].Text = "mutated"
	if j.Payload.Items[0].Text != "a" {
		t.Fatal("queued payload must be immutable")
	}
}
