package recovery_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/clock"
	"github.com/notifyhub/deadline-reminders/internal/recovery"
)

type countingRechecker struct{ calls atomic.Int32 }

func (c *countingRechecker) Recheck() int {
	c.calls.Add(1)
	return 3
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestMonitor_ThrottlesToOncePerInterval(t *testing.T) {
	clk := clock.NewFake(t0)
	target := &countingRechecker{}
	var ran, throttled int
	m := recovery.NewMonitor(target, clk, 10*time.Second, zap.NewNop(), func(ok bool) {
		if ok {
			ran++
		} else {
			throttled++
		}
	})

	assert.True(t, m.Foreground())
	assert.False(t, m.Foreground())

	clk.Advance(9 * time.Second)
	assert.False(t, m.Foreground())

	clk.Advance(time.Second)
	assert.True(t, m.Foreground())

	assert.Equal(t, int32(2), target.calls.Load())
	assert.Equal(t, 2, ran)
	assert.Equal(t, 2, throttled)
}

func TestMonitor_ZeroThrottleNeverSuppresses(t *testing.T) {
	target := &countingRechecker{}
	m := recovery.NewMonitor(target, clock.NewFake(t0), 0, zap.NewNop(), nil)

	for range 5 {
		assert.True(t, m.Foreground())
	}
	assert.Equal(t, int32(5), target.calls.Load())
}

func TestMonitor_RunReactsToVisibleEvents(t *testing.T) {
	clk := clock.NewFake(t0)
	target := &countingRechecker{}
	m := recovery.NewMonitor(target, clk, time.Nanosecond, zap.NewNop(), nil)

	events := make(chan bool)
	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), events)
		close(done)
	}()

	events <- false
	events <- true
	close(events)
	<-done

	assert.Equal(t, int32(1), target.calls.Load())
}

func TestMonitor_Schedule(t *testing.T) {
	target := &countingRechecker{}
	m := recovery.NewMonitor(target, clock.Real{}, 0, zap.NewNop(), nil)

	require.Error(t, m.Schedule("not a schedule"))

	require.NoError(t, m.Schedule("@every 1s"))
	defer m.Stop()

	assert.Eventually(t, func() bool { return target.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
