// Package recovery re-evaluates every registered watch when the host regains
// foreground visibility, catching up on phases missed while it was suspended.
package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/notifyhub/deadline-reminders/internal/clock"
)

// Rechecker re-arms every registered watch and reports how many it touched.
type Rechecker interface {
	Recheck() int
}

// Monitor throttles foreground triggers and forwards the surviving ones to a
// Rechecker. One Monitor is installed per service.
type Monitor struct {
	target  Rechecker
	clock   clock.Clock
	limiter *rate.Limiter
	logger  *zap.Logger
	onRun   func(ran bool)

	mu   sync.Mutex
	cron *cron.Cron
}

// NewMonitor allows at most one recovery pass per throttle interval.
// A non-positive throttle disables throttling.
func NewMonitor(target Rechecker, clk clock.Clock, throttle time.Duration, logger *zap.Logger, onRun func(bool)) *Monitor {
	limit := rate.Inf
	if throttle > 0 {
		limit = rate.Every(throttle)
	}
	if onRun == nil {
		onRun = func(bool) {}
	}
	return &Monitor{
		target:  target,
		clock:   clk,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		onRun:   onRun,
	}
}

// Foreground signals that the host became visible again. It reports whether a
// recovery pass ran or was throttled.
func (m *Monitor) Foreground() bool {
	// The limiter is evaluated against the injected clock so tests stay deterministic.
	if !m.limiter.AllowN(m.clock.Now(), 1) {
		m.logger.Debug("recovery pass throttled")
		m.onRun(false)
		return false
	}

	n := m.target.Recheck()
	m.onRun(true)
	m.logger.Info("recovery pass completed", zap.Int("watches", n))
	return true
}

// Run consumes visibility events until ctx is done or events is closed.
// A true value means the host became visible.
func (m *Monitor) Run(ctx context.Context, events <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case visible, ok := <-events:
			if !ok {
				return
			}
			if visible {
				m.Foreground()
			}
		}
	}
}

// Schedule installs a periodic trigger for hosts that never report visibility
// changes. spec uses standard cron syntax with optional seconds and descriptors
// such as "@every 5m". Scheduled triggers share the throttle.
func (m *Monitor) Schedule(spec string) error {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(spec, func() { m.Foreground() }); err != nil {
		return fmt.Errorf("parse recovery schedule %q: %w", spec, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		m.cron.Stop()
	}
	m.cron = c
	c.Start()
	m.logger.Info("recovery schedule installed", zap.String("schedule", spec))
	return nil
}

// Stop halts the periodic trigger, waiting for a running pass to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
