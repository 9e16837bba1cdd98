package ledger

import (
	"sync"
	"time"

	"github.com/notifyhub/deadline-reminders/internal/clock"
)

// Ledger maps a payload fingerprint to the time of its last successful send
// and suppresses repeats inside the cooldown window.
//
// Entries live in memory only. Anything older than the GC horizon can be
// purged by Sweep; the horizon must stay longer than the cooldown window.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	window  time.Duration
	horizon time.Duration
	clock   clock.Clock
}

func New(window, horizon time.Duration, clk clock.Clock) *Ledger {
	if horizon < window {
		horizon = window
	}
	return &Ledger{
		entries: make(map[string]time.Time),
		window:  window,
		horizon: horizon,
		clock:   clk,
	}
}

// ShouldSend reports whether fp has not been sent within the cooldown window.
func (l *Ledger) ShouldSend(fp string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.entries[fp]
	if !ok {
		return true
	}
	return l.clock.Now().Sub(last) >= l.window
}

// Record stores at as the last successful send time of fp.
func (l *Ledger) Record(fp string, at time.Time) {
	l.mu.Lock()
	l.entries[fp] = at
	l.mu.Unlock()
}

// Sweep evicts entries older than the GC horizon and returns how many were removed.
func (l *Ledger) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.clock.Now().Add(-l.horizon)
	removed := 0
	for fp, at := range l.entries {
		if at.Before(cutoff) {
			delete(l.entries, fp)
			removed++
		}
	}
	return removed
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) Window() time.Duration { return l.window }
