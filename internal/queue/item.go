package queue

import (
	"time"

	"github.com/notifyhub/deadline-reminders/internal/cancellation"
	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// Job is one logical send waiting for the dispatcher.
// Result is buffered (cap 1) and receives exactly one SendResult.
type Job struct {
	Payload     domain.Payload
	Fingerprint string
	Token       *cancellation.Token
	EnqueuedAt  time.Time
	Result      chan domain.SendResult
}

// NewJob clones the payload so later caller mutations cannot reach the queue.
func NewJob(p domain.Payload, tok *cancellation.Token, now time.Time) Job {
	p = p.Clone()
	return Job{
		Payload:     p,
		Fingerprint: p.Fingerprint(),
		Token:       tok,
		EnqueuedAt:  now,
		Result:      make(chan domain.SendResult, 1),
	}
}

// Resolve delivers the job's terminal outcome. Only the first call has an effect.
func (j Job) Resolve(res domain.SendResult) {
	select {
	case j.Result <- res:
	default:
	}
}
