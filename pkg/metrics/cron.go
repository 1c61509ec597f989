package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dividify"

// JobOutcome labels a single cron job execution.
type JobOutcome string

const (
	OutcomeSuccess JobOutcome = "success"
	OutcomeFailure JobOutcome = "failure"
	OutcomeSkipped JobOutcome = "skipped"
)

// CronJobMetrics tracks executions of the jobs registered with the cron worker.
type CronJobMetrics struct {
	executions  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

// NewCronJobMetrics registers the cron collectors on reg. A nil registerer yields a no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_executions_total",
			Help:      "Cron job executions partitioned by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Wall time spent inside a cron job.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful execution.",
		}, []string{"job"}),
		now: time.Now,
	}
	reg.MustRegister(m.executions, m.duration, m.lastSuccess)
	return m
}

// Record counts one execution. Durations of zero are not observed, which is
// how lock-contention skips are reported.
func (c *CronJobMetrics) Record(job string, outcome JobOutcome, took time.Duration) {
	if c == nil || c.executions == nil {
		return
	}
	job = normalizeLabel(job)
	c.executions.WithLabelValues(job, string(outcome)).Inc()
	if took > 0 {
		c.duration.WithLabelValues(job).Observe(took.Seconds())
	}
	if outcome == OutcomeSuccess {
		c.lastSuccess.WithLabelValues(job).Set(float64(c.now().Unix()))
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
