package cancellation

import (
	"sync"
	"time"
)

// Registry maps a watch id to its current token. Cancelled tokens stay as
// tombstones until a new watch generation replaces them or Prune drops them,
// so manual submissions tagged with a deleted watch id also drain as cancelled.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]*Token)}
}

// Acquire returns the live token for watchID, creating a fresh one when none
// exists or the previous generation was cancelled.
func (r *Registry) Acquire(watchID string) *Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[watchID]; ok && !t.Cancelled() {
		return t
	}
	t := newToken(watchID)
	r.tokens[watchID] = t
	return t
}

// Lookup returns the current token for watchID (possibly a cancelled
// tombstone) or nil when the id is unknown. Manual submissions use it so a
// deleted watch keeps draining its late jobs without registering new ids.
func (r *Registry) Lookup(watchID string) *Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[watchID]
}

// Cancel cancels the current token for watchID. Unknown ids get a tombstone
// so that jobs submitted later under that id are still skipped.
func (r *Registry) Cancel(watchID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[watchID]
	if !ok {
		t = newToken(watchID)
		r.tokens[watchID] = t
	}
	t.Cancel(at)
}

// Prune drops tombstones cancelled before cutoff. Queued jobs keep their own
// pointer to the token, so pruning never resurrects a cancelled job.
func (r *Registry) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, t := range r.tokens {
		if t.cancelledBefore(cutoff) {
			delete(r.tokens, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
