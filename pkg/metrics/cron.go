package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hatchery"

// JobOutcome labels one cron tick.
type JobOutcome string

const (
	JobSucceeded JobOutcome = "success"
	JobFailed    JobOutcome = "failure"
	// JobSkipped covers ticks that lost the lock or found a sweep in flight.
	JobSkipped JobOutcome = "skipped"
)

// Sweeps range from milliseconds on an empty table to minutes after an outage.
var cronDurationBuckets = []float64{0.05, 0.25, 1, 5, 15, 60, 300}

// CronJobMetrics records scheduled job runs.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

// NewCronJobMetrics registers the cron collectors on reg. A nil registerer
// yields a recorder that drops everything.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job ticks by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Wall time of cron jobs that ran.",
			Buckets:   cronDurationBuckets,
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// Finished records a job that executed, successfully or not.
func (c *CronJobMetrics) Finished(job string, outcome JobOutcome, took time.Duration) {
	if c == nil || c.runs == nil {
		return
	}
	job = labelOrUnknown(job)
	c.runs.WithLabelValues(job, string(outcome)).Inc()
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if outcome == JobSucceeded {
		c.lastSuccess.WithLabelValues(job).SetToCurrentTime()
	}
}

// Skipped records a tick that did no work.
func (c *CronJobMetrics) Skipped(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(labelOrUnknown(job), string(JobSkipped)).Inc()
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
