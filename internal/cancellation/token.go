// Package cancellation tracks per-watch cancellation tokens.
//
// A Token is owned by one watch generation and is handed by pointer to every
// timer closure and queued job created for that watch. Cancelling it turns any
// pending timer fire or queued job into a no-op, even when the timer is
// already due or the job already sits in the queue.
package cancellation

import (
	"sync/atomic"
	"time"
)

type Token struct {
	watchID     string
	cancelled   atomic.Bool
	cancelledAt atomic.Int64
}

func newToken(watchID string) *Token {
	return &Token{watchID: watchID}
}

// Cancel marks the token cancelled at the given instant. Repeated calls keep
// the first instant.
func (t *Token) Cancel(at time.Time) {
	if t.cancelled.CompareAndSwap(false, true) {
		t.cancelledAt.Store(at.UnixNano())
	}
}

// Cancelled is safe to call on a nil token, which is never cancelled.
func (t *Token) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

func (t *Token) WatchID() string {
	if t == nil {
		return ""
	}
	return t.watchID
}

func (t *Token) cancelledBefore(cutoff time.Time) bool {
	return t.Cancelled() && t.cancelledAt.Load() < cutoff.UnixNano()
}
