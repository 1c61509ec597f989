package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics tracks per-schedule outcomes of the scheduled dividend batch.
type SchedulerMetrics struct {
	runs       *prometheus.CounterVec
	documents  *prometheus.CounterVec
	emails     *prometheus.CounterVec
	autoPaused prometheus.Counter
	batch      prometheus.Histogram
	due        prometheus.Gauge
}

// NewSchedulerMetrics registers the scheduler metrics on the provided registerer.
func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	if reg == nil {
		return &SchedulerMetrics{}
	}
	m := &SchedulerMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_runs_total",
			Help:      "Scheduled dividend runs by terminal status.",
		}, []string{"status"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_documents_total",
			Help:      "Documents generated by scheduled runs.",
		}, []string{"kind", "result"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_emails_total",
			Help:      "Notification emails attempted by scheduled runs.",
		}, []string{"result"}),
		autoPaused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedules_auto_paused_total",
			Help:      "Schedules paused after reaching the consecutive failure limit.",
		}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduled_batch_duration_seconds",
			Help:      "Wall time of a full scheduled dividend batch.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 1800},
		}),
		due: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduled_due_schedules",
			Help:      "Schedules found due by the most recent batch.",
		}),
	}
	reg.MustRegister(m.runs, m.documents, m.emails, m.autoPaused, m.batch, m.due)
	return m
}

// ObserveRun counts a run reaching the given status.
func (m *SchedulerMetrics) ObserveRun(status string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveDocument counts a document generation attempt.
func (m *SchedulerMetrics) ObserveDocument(kind string, ok bool) {
	if m == nil || m.documents == nil {
		return
	}
	m.documents.WithLabelValues(normalizeLabel(kind), result(ok)).Inc()
}

// ObserveEmail counts a notification attempt.
func (m *SchedulerMetrics) ObserveEmail(sent bool) {
	if m == nil || m.emails == nil {
		return
	}
	m.emails.WithLabelValues(result(sent)).Inc()
}

// IncAutoPaused counts a schedule paused by the failure limit.
func (m *SchedulerMetrics) IncAutoPaused() {
	if m == nil || m.autoPaused == nil {
		return
	}
	m.autoPaused.Inc()
}

// ObserveBatch records the due count and duration of one batch.
func (m *SchedulerMetrics) ObserveBatch(due int, duration time.Duration) {
	if m == nil || m.batch == nil {
		return
	}
	m.due.Set(float64(due))
	m.batch.Observe(duration.Seconds())
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
