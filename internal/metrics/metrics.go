package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/worker"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	RemindersSent         *prometheus.CounterVec
	RemindersFailed       *prometheus.CounterVec
	RemindersCancelled    *prometheus.CounterVec
	RemindersDeduplicated *prometheus.CounterVec
	DispatchLatency       *prometheus.HistogramVec
	QueueDepth            prometheus.Gauge
	ActiveWatches         prometheus.Gauge
	PhaseFires            *prometheus.CounterVec
	RecoveryRuns          *prometheus.CounterVec
}

// New registers all instruments with the given registerer.
// A custom registry keeps tests isolated from global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RemindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Total number of successfully delivered reminders.",
		}, []string{"source"}),

		RemindersFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminders_failed_total",
			Help: "Total number of reminders that failed after the final attempt.",
		}, []string{"source", "terminal"}),

		RemindersCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminders_cancelled_total",
			Help: "Reminders drained or aborted because their watch was cancelled.",
		}, []string{"source"}),

		RemindersDeduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminders_deduplicated_total",
			Help: "Reminders suppressed by the cooldown ledger.",
		}, []string{"source"}),

		DispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reminder_dispatch_seconds",
			Help:    "Time from first attempt to provider acknowledgement, including backoff.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reminder_queue_depth",
			Help: "Current number of jobs waiting in the dispatch queue.",
		}),

		ActiveWatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reminder_active_watches",
			Help: "Number of watch configurations currently registered.",
		}),

		PhaseFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminder_phase_fires_total",
			Help: "Deadline phases fired by the watcher.",
		}, []string{"phase"}),

		RecoveryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminder_recovery_runs_total",
			Help: "Visibility recovery triggers, labelled by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.RemindersSent,
		m.RemindersFailed,
		m.RemindersCancelled,
		m.RemindersDeduplicated,
		m.DispatchLatency,
		m.QueueDepth,
		m.ActiveWatches,
		m.PhaseFires,
		m.RecoveryRuns,
	)

	return m
}

// WorkerHooks returns the callbacks expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the worker stays import-free.
func (m *Metrics) WorkerHooks() worker.MetricHooks {
	return worker.MetricHooks{
		OnSent: func(src domain.Source, latency time.Duration) {
			m.RemindersSent.WithLabelValues(string(src)).Inc()
			m.DispatchLatency.WithLabelValues(string(src)).Observe(latency.Seconds())
		},
		OnFailed: func(src domain.Source, terminal bool) {
			label := "false"
			if terminal {
				label = "true"
			}
			m.RemindersFailed.WithLabelValues(string(src), label).Inc()
		},
		OnCancelled: func(src domain.Source) {
			m.RemindersCancelled.WithLabelValues(string(src)).Inc()
		},
		OnDeduplicated: func(src domain.Source) {
			m.RemindersDeduplicated.WithLabelValues(string(src)).Inc()
		},
		OnQueueDepth: func(depth int) {
			m.QueueDepth.Set(float64(depth))
		},
	}
}

// OnPhaseFired counts one watcher phase firing.
func (m *Metrics) OnPhaseFired(label string) {
	m.PhaseFires.WithLabelValues(label).Inc()
}

// OnRecovery counts one recovery trigger; ran is false when throttled.
func (m *Metrics) OnRecovery(ran bool) {
	outcome := "throttled"
	if ran {
		outcome = "ran"
	}
	m.RecoveryRuns.WithLabelValues(outcome).Inc()
}

// SetActiveWatches records the current watch count.
func (m *Metrics) SetActiveWatches(n int) {
	m.ActiveWatches.Set(float64(n))
}
