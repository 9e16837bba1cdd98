package sentlog

import (
	"sync"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// DefaultCapacity is the number of records kept before the oldest is evicted.
const DefaultCapacity = 200

// Log is a bounded, append-only audit trail of delivery attempts.
// Overflow silently evicts the oldest record; Append never blocks on capacity.
type Log struct {
	mu    sync.Mutex
	buf   []domain.SentRecord
	start int
	size  int
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]domain.SentRecord, capacity)}
}

func (l *Log) Append(rec domain.SentRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	capacity := len(l.buf)
	if l.size < capacity {
		l.buf[(l.start+l.size)%capacity] = rec
		l.size++
		return
	}
	l.buf[l.start] = rec
	l.start = (l.start + 1) % capacity
}

// Entries returns a copy of the log, most recent first.
func (l *Log) Entries() []domain.SentRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.SentRecord, 0, l.size)
	for i := l.size - 1; i >= 0; i-- {
		out = append(out, l.buf[(l.start+i)%len(l.buf)])
	}
	return out
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.buf)
	l.start, l.size = 0, 0
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

func (l *Log) Cap() int { return len(l.buf) }
