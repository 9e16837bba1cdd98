package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/cancellation"
	"github.com/notifyhub/deadline-reminders/internal/clock"
	"github.com/notifyhub/deadline-reminders/internal/config"
	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/ledger"
	"github.com/notifyhub/deadline-reminders/internal/metrics"
	"github.com/notifyhub/deadline-reminders/internal/provider"
	"github.com/notifyhub/deadline-reminders/internal/queue"
	"github.com/notifyhub/deadline-reminders/internal/ratelimiter"
	"github.com/notifyhub/deadline-reminders/internal/recovery"
	"github.com/notifyhub/deadline-reminders/internal/repository"
	"github.com/notifyhub/deadline-reminders/internal/scheduler"
	"github.com/notifyhub/deadline-reminders/internal/sentlog"
	"github.com/notifyhub/deadline-reminders/internal/worker"
)

// Dependencies are the collaborators injected by main. Archive, Limiter and
// Metrics may be nil; Clock defaults to the wall clock.
type Dependencies struct {
	Provider provider.Provider
	Limiter  *ratelimiter.TransportLimiter
	Archive  repository.SentRecordRepository
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Stats is a point-in-time snapshot of engine state.
type Stats struct {
	Enabled         bool    `json:"enabled"`
	QueueDepth      int     `json:"queue_depth"`
	ActiveWatches   int     `json:"active_watches"`
	LedgerEntries   int     `json:"ledger_entries"`
	CooldownSeconds float64 `json:"cooldown_seconds"`
	SentLogSize     int     `json:"sent_log_size"`
	SentLogCapacity int     `json:"sent_log_capacity"`
	Tokens          int     `json:"tokens"`
}

// ReminderService owns every piece of engine state: ledger, sent log,
// cancellation registry, queue, dispatcher and watcher. HTTP handlers, the
// watch file loader and signal handlers depend on this service only.
type ReminderService struct {
	cfg      *config.Config
	clock    clock.Clock
	logger   *zap.Logger
	hooks    worker.MetricHooks
	archive  repository.SentRecordRepository
	ledger   *ledger.Ledger
	sentLog  *sentlog.Log
	registry *cancellation.Registry
	q        *queue.Sequential
	runner   *worker.Runner
	sweeper  *worker.Sweeper
	watcher  *scheduler.Watcher
	monitor  *recovery.Monitor

	enabled atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
}

func New(cfg *config.Config, deps Dependencies) *ReminderService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		hooks        worker.MetricHooks
		watcherHooks scheduler.Hooks
		onRecovery   func(bool)
	)
	if deps.Metrics != nil {
		hooks = deps.Metrics.WorkerHooks()
		watcherHooks = scheduler.Hooks{OnFire: deps.Metrics.OnPhaseFired, OnWatches: deps.Metrics.SetActiveWatches}
		onRecovery = deps.Metrics.OnRecovery
	}
	hooks = hooks.WithDefaults()

	s := &ReminderService{
		cfg:      cfg,
		clock:    clk,
		logger:   logger,
		hooks:    hooks,
		archive:  deps.Archive,
		ledger:   ledger.New(cfg.DedupCooldown, cfg.LedgerGCHorizon, clk),
		sentLog:  sentlog.New(cfg.SentLogSize),
		registry: cancellation.NewRegistry(),
		q:        queue.New(),
	}

	dispatcher := worker.NewDispatcher(
		deps.Provider, deps.Limiter, s.ledger, s.sentLog, deps.Archive,
		clk, cfg.MaxAttempts, cfg.RetryBaseDelay, logger.Named("dispatcher"), hooks,
	)
	s.runner = worker.NewRunner(s.q, dispatcher, logger.Named("runner"))
	s.sweeper = worker.NewSweeper(s.ledger, s.registry, clk, cfg.LedgerGCHorizon, cfg.LedgerSweepInterval, logger.Named("sweeper"))
	s.watcher = scheduler.NewWatcher(clk, s.registry, s, domain.DefaultPhases, cfg.CatchUpWindow, logger.Named("watcher"), watcherHooks)
	s.monitor = recovery.NewMonitor(s.watcher, clk, cfg.RecoveryThrottle, logger.Named("recovery"), onRecovery)
	s.enabled.Store(!cfg.RemindersDisabled)
	return s
}

// Start launches the dispatch runner, the ledger sweeper and, when configured,
// the periodic recovery trigger. Jobs submitted before Start wait in the queue.
func (s *ReminderService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if s.cfg.RecoverySchedule != "" {
		if err := s.monitor.Schedule(s.cfg.RecoverySchedule); err != nil {
			return fmt.Errorf("install recovery schedule: %w", err)
		}
	}

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.runner.Start(workerCtx)
	go s.sweeper.Run(workerCtx)
	s.started = true
	s.logger.Info("reminder service started", zap.Bool("enabled", s.Enabled()))
	return nil
}

// Shutdown stops every timer, resolves queued jobs as cancelled, interrupts
// any backoff in progress and waits for the runner to exit or ctx to expire.
func (s *ReminderService) Shutdown(ctx context.Context) error {
	s.watcher.Stop()
	s.monitor.Stop()

	rest := s.q.Close()
	for _, job := range rest {
		job.Resolve(domain.SendResult{Cancelled: true, Error: domain.ErrServiceStopped.Error()})
	}
	if len(rest) > 0 {
		s.logger.Info("resolved queued reminders on shutdown", zap.Int("jobs", len(rest)))
	}

	s.mu.Lock()
	cancel, started := s.cancel, s.started
	s.mu.Unlock()
	if !started {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.runner.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("reminder service stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for dispatch runner: %w", ctx.Err())
	}
}

// Submit queues a manual reminder and returns immediately. The channel yields
// exactly one result. Payloads carrying the WatchID of a registered or
// recently deleted watch are bound to its token, so deleting the watch drains
// them too. Unknown ids are never registered.
func (s *ReminderService) Submit(p domain.Payload) <-chan domain.SendResult {
	var tok *cancellation.Token
	if p.WatchID != "" {
		tok = s.registry.Lookup(p.WatchID)
	}
	return s.Dispatch(p, tok)
}

// Send submits p and waits for its outcome or for ctx to end.
func (s *ReminderService) Send(ctx context.Context, p domain.Payload) (domain.SendResult, error) {
	select {
	case res := <-s.Submit(p):
		return res, nil
	case <-ctx.Done():
		return domain.SendResult{}, ctx.Err()
	}
}

// Dispatch enqueues p under tok. The watcher calls it for every phase firing.
func (s *ReminderService) Dispatch(p domain.Payload, tok *cancellation.Token) <-chan domain.SendResult {
	if !s.Enabled() {
		return resolved(domain.SendResult{Success: true, Deduplicated: true})
	}
	if err := p.Validate(); err != nil {
		return resolved(domain.SendResult{Error: err.Error()})
	}
	if tok.Cancelled() {
		s.hooks.OnCancelled(p.Source)
		return resolved(domain.SendResult{Cancelled: true})
	}

	job := queue.NewJob(p, tok, s.clock.Now())
	if !s.ledger.ShouldSend(job.Fingerprint) {
		s.hooks.OnDeduplicated(p.Source)
		s.logger.Debug("reminder deduplicated",
			zap.String("key", job.Fingerprint),
			zap.String("phase", p.TimeRemaining),
		)
		return resolved(domain.SendResult{Deduplicated: true})
	}

	if err := s.q.Enqueue(job); err != nil {
		return resolved(domain.SendResult{Cancelled: true, Error: domain.ErrServiceStopped.Error()})
	}
	s.hooks.OnQueueDepth(s.q.Depth())
	return job.Result
}

// Watch registers deadline timers for cfg. While the kill switch is engaged it
// registers nothing and returns a no-op cancel func.
func (s *ReminderService) Watch(cfg domain.WatchConfig) (func(), error) {
	if !s.Enabled() {
		return func() {}, nil
	}
	return s.watcher.Watch(cfg)
}

// Cancel deregisters watchID. Reports whether it was registered.
func (s *ReminderService) Cancel(watchID string) bool {
	return s.watcher.Cancel(watchID)
}

// Pending returns how many phase timers are armed for watchID.
func (s *ReminderService) Pending(watchID string) int {
	return s.watcher.Pending(watchID)
}

func (s *ReminderService) Watches() []domain.WatchConfig {
	return s.watcher.Watches()
}

// Foreground triggers a throttled recovery pass.
func (s *ReminderService) Foreground() bool {
	return s.monitor.Foreground()
}

// SentLog returns the audit trail, most recent first.
func (s *ReminderService) SentLog() []domain.SentRecord {
	return s.sentLog.Entries()
}

func (s *ReminderService) ClearSentLog() {
	s.sentLog.Clear()
}

// Archive pages through the persistent copy of the audit trail.
func (s *ReminderService) Archive(ctx context.Context, f domain.ArchiveFilter) ([]domain.SentRecord, int, error) {
	if s.archive == nil {
		return nil, 0, domain.ErrArchiveDisabled
	}
	return s.archive.List(ctx, f)
}

// SetEnabled flips the kill switch.
func (s *ReminderService) SetEnabled(enabled bool) {
	if s.enabled.Swap(enabled) != enabled {
		s.logger.Warn("reminder kill switch changed", zap.Bool("enabled", enabled))
	}
}

func (s *ReminderService) Enabled() bool {
	return s.enabled.Load()
}

func (s *ReminderService) Stats() Stats {
	return Stats{
		Enabled:         s.Enabled(),
		QueueDepth:      s.q.Depth(),
		ActiveWatches:   len(s.watcher.Watches()),
		LedgerEntries:   s.ledger.Len(),
		CooldownSeconds: s.ledger.Window().Seconds(),
		SentLogSize:     s.sentLog.Len(),
		SentLogCapacity: s.sentLog.Cap(),
		Tokens:          s.registry.Len(),
	}
}

func resolved(res domain.SendResult) <-chan domain.SendResult {
	ch := make(chan domain.SendResult, 1)
	ch <- res
	return ch
}
