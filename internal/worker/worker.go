package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/clock"
	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/ledger"
	"github.com/notifyhub/deadline-reminders/internal/provider"
	"github.com/notifyhub/deadline-reminders/internal/queue"
	"github.com/notifyhub/deadline-reminders/internal/ratelimiter"
	"github.com/notifyhub/deadline-reminders/internal/repository"
	"github.com/notifyhub/deadline-reminders/internal/sentlog"
)

// Dispatcher executes one logical send with bounded retries.
//
// Backoff is exponential: the wait after failed attempt n (0-based) is
// baseDelay * 2^n, so the defaults produce 1s then 2s between three attempts.
// Terminal failures stop immediately; cancellation is re-checked before every retry.
type Dispatcher struct {
	prov        provider.Provider
	limiter     *ratelimiter.TransportLimiter
	ledger      *ledger.Ledger
	sentLog     *sentlog.Log
	archive     repository.SentRecordRepository
	clock       clock.Clock
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
	hooks       MetricHooks
}

// NewDispatcher constructs a dispatcher. archive may be nil.
func NewDispatcher(
	prov provider.Provider,
	limiter *ratelimiter.TransportLimiter,
	led *ledger.Ledger,
	sentLog *sentlog.Log,
	archive repository.SentRecordRepository,
	clk clock.Clock,
	maxAttempts int,
	baseDelay time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		prov: prov, limiter: limiter, ledger: led, sentLog: sentLog,
		archive: archive, clock: clk, maxAttempts: maxAttempts,
		baseDelay: baseDelay, logger: logger, hooks: hooks.WithDefaults(),
	}
}

// Dispatch runs the attempt loop for job and returns its terminal outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, job queue.Job) domain.SendResult {
	p := job.Payload
	log := d.logger.With(
		zap.String("key", job.Fingerprint),
		zap.String("source", string(p.Source)),
		zap.String("watch_id", p.WatchID),
	)

	// A duplicate may have been queued behind the send that just succeeded.
	if !d.ledger.ShouldSend(job.Fingerprint) {
		d.hooks.OnDeduplicated(p.Source)
		log.Debug("reminder already sent within cooldown; skipping queued duplicate")
		return domain.SendResult{Deduplicated: true}
	}

	start := d.clock.Now()
	attempts := 0
	var lastErr error

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := d.clock.Sleep(ctx, d.backoff(attempt-1)); err != nil {
				return d.stopped(p, log)
			}
			if job.Token.Cancelled() {
				d.hooks.OnCancelled(p.Source)
				log.Info("watch cancelled during retry backoff; aborting", zap.Int("attempts", attempts))
				return domain.SendResult{Cancelled: true}
			}
		}

		// Block here until the transport limiter grants a token.
		if err := d.limiter.Wait(ctx); err != nil {
			return d.stopped(p, log)
		}

		attempts++
		receipt, err := d.prov.Deliver(ctx, p)
		if err == nil {
			return d.succeeded(job, receipt, attempts, start, log)
		}

		lastErr = err
		terminal := domain.IsTerminal(err)
		log.Warn("delivery attempt failed",
			zap.Error(err),
			zap.Int("attempt", attempts),
			zap.Bool("terminal", terminal),
		)
		if terminal {
			break
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return d.stopped(p, log)
		}
	}

	d.record(domain.SentRecord{
		ID:        uuid.NewString(),
		Key:       job.Fingerprint,
		Source:    p.Source,
		Title:     p.Title,
		SentAt:    d.clock.Now(),
		Recipient: p.RecipientEmail(),
		Success:   false,
		Error:     lastErr.Error(),
		Attempts:  attempts,
	}, log)
	d.hooks.OnFailed(p.Source, domain.IsTerminal(lastErr))
	log.Error("reminder delivery failed", zap.Error(lastErr), zap.Int("attempts", attempts))

	return domain.SendResult{Error: lastErr.Error()}
}

func (d *Dispatcher) succeeded(job queue.Job, receipt *provider.Receipt, attempts int, start time.Time, log *zap.Logger) domain.SendResult {
	p := job.Payload
	now := d.clock.Now()
	var msgID string
	if receipt != nil {
		msgID = receipt.MessageID
	}

	d.ledger.Record(job.Fingerprint, now)
	d.record(domain.SentRecord{
		ID:        uuid.NewString(),
		Key:       job.Fingerprint,
		Source:    p.Source,
		Title:     p.Title,
		SentAt:    now,
		Recipient: p.RecipientEmail(),
		Success:   true,
		Attempts:  attempts,
	}, log)

	elapsed := now.Sub(start)
	d.hooks.OnSent(p.Source, elapsed)
	log.Info("reminder sent",
		zap.String("message_id", msgID),
		zap.Int("attempts", attempts),
		zap.Duration("latency", elapsed),
	)
	return domain.SendResult{Success: true, MessageID: msgID}
}

// stopped resolves a job interrupted by service shutdown. No audit record is
// written because the outcome of the reminder itself is unknown.
func (d *Dispatcher) stopped(p domain.Payload, log *zap.Logger) domain.SendResult {
	d.hooks.OnCancelled(p.Source)
	log.Info("dispatch interrupted by shutdown")
	return domain.SendResult{Cancelled: true, Error: domain.ErrServiceStopped.Error()}
}

// record appends to the in-memory log and archives asynchronously.
// Archive failures are logged and never block dispatch.
func (d *Dispatcher) record(rec domain.SentRecord, log *zap.Logger) {
	d.sentLog.Append(rec)
	if d.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.archive.Insert(ctx, rec); err != nil {
			log.Warn("failed to archive sent record", zap.String("record_id", rec.ID), zap.Error(err))
		}
	}()
}

func (d *Dispatcher) backoff(failedAttempt int) time.Duration {
	return d.baseDelay << failedAttempt
}
