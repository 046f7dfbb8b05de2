package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics tracks broadcast fan-out, live pushes and retention sweeps.
type NotificationMetrics struct {
	broadcasts    *prometheus.CounterVec
	inserted      *prometheus.CounterVec
	insertFailed  *prometheus.CounterVec
	pushes        *prometheus.CounterVec
	sweepDeleted  *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	m := &NotificationMetrics{
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Broadcasts by target and insert outcome (all, partial, none).",
		}, []string{"target", "outcome"}),
		inserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_inserted_total",
			Help:      "Notification records persisted, by origin.",
		}, []string{"origin"}),
		insertFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_insert_failed_total",
			Help:      "Per-recipient notification inserts that failed during fan-out.",
		}, []string{"target"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_pushes_total",
			Help:      "Live channel pushes by result.",
		}, []string{"result"}),
		sweepDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_deleted_total",
			Help:      "Rows removed by retention sweeps, by category.",
		}, []string{"category"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall-clock duration of retention sweeps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
	}
	reg.MustRegister(m.broadcasts, m.inserted, m.insertFailed, m.pushes, m.sweepDeleted, m.sweepDuration)
	return m
}

func (m *NotificationMetrics) ObserveBroadcast(target, outcome string, inserted, failed int) {
	if m == nil || m.broadcasts == nil {
		return
	}
	target = labelOrUnknown(target)
	m.broadcasts.WithLabelValues(target, labelOrUnknown(outcome)).Inc()
	m.inserted.WithLabelValues("broadcast").Add(float64(inserted))
	if failed > 0 {
		m.insertFailed.WithLabelValues(target).Add(float64(failed))
	}
}

func (m *NotificationMetrics) IncCreated(origin string) {
	if m == nil || m.inserted == nil {
		return
	}
	m.inserted.WithLabelValues(labelOrUnknown(origin)).Inc()
}

func (m *NotificationMetrics) IncPush(ok bool) {
	if m == nil || m.pushes == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.pushes.WithLabelValues(result).Inc()
}

// ObserveSweep records per-category deletions for one completed sweep.
func (m *NotificationMetrics) ObserveSweep(scope string, duration time.Duration, deleted map[string]int64) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.WithLabelValues(labelOrUnknown(scope)).Observe(duration.Seconds())
	for category, count := range deleted {
		m.sweepDeleted.WithLabelValues(labelOrUnknown(category)).Add(float64(count))
	}
}
