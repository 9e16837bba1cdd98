package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/cancellation"
	"github.com/notifyhub/deadline-reminders/internal/clock"
	"github.com/notifyhub/deadline-reminders/internal/ledger"
)

// Sweeper periodically evicts cooldown entries past the GC horizon and
// cancellation tombstones older than the same horizon.
type Sweeper struct {
	ledger   *ledger.Ledger
	registry *cancellation.Registry
	clock    clock.Clock
	horizon  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// DefaultSweepInterval is used when NewSweeper gets a non-positive interval.
const DefaultSweepInterval = time.Minute

func NewSweeper(
	led *ledger.Ledger,
	registry *cancellation.Registry,
	clk clock.Clock,
	horizon time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		ledger: led, registry: registry, clock: clk,
		horizon: horizon, interval: interval, logger: logger,
	}
}

// Run ticks every interval and sweeps.
// Stops cleanly when ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("ledger sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ledger sweeper stopping")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep performs one pass and returns how many ledger entries and tombstones were dropped.
func (s *Sweeper) Sweep() (entries, tombstones int) {
	entries = s.ledger.Sweep()
	tombstones = s.registry.Prune(s.clock.Now().Add(-s.horizon))

	if entries > 0 || tombstones > 0 {
		s.logger.Debug("swept expired state",
			zap.Int("ledger_entries", entries),
			zap.Int("tombstones", tombstones),
		)
	}
	return entries, tombstones
}
