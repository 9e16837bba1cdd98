package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

func TestWorkerHooksRecordSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	hooks := m.WorkerHooks()
	hooks.OnSent(domain.SourceChecklist, 120*time.Millisecond)
	hooks.OnFailed(domain.SourceKanban, true)
	hooks.OnCancelled(domain.SourceKanban)
	hooks.OnDeduplicated(domain.SourceChecklist)
	hooks.OnQueueDepth(3)
	m.OnPhaseFired("overdue")
	m.OnRecovery(false)
	m.SetActiveWatches(2)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"reminders_sent_total",
		"reminders_failed_total",
		"reminders_cancelled_total",
		"reminders_deduplicated_total",
		"reminder_dispatch_seconds",
		"reminder_queue_depth",
		"reminder_active_watches",
		"reminder_phase_fires_total",
		"reminder_recovery_runs_total",
	} {
		assert.True(t, names[want], want)
	}
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
