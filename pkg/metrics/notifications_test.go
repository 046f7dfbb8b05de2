package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationMetricsBroadcastAndSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNotificationMetrics(reg)

	m.ObserveBroadcast("users", "partial", 3, 1)
	m.IncCreated("single")
	m.IncPush(true)
	m.IncPush(false)
	m.ObserveSweep("full", 120*time.Millisecond, map[string]int64{"notifications": 4, "stories": 2})

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "hatchery_broadcasts_total", "outcome", "partial")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "hatchery_notifications_inserted_total", "origin", "broadcast")
	require.NoError(t, err)
	assert.Equal(t, float64(3), got)

	got, err = fetchCounterValue(mfs, "hatchery_notifications_insert_failed_total", "target", "users")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "hatchery_notification_pushes_total", "result", "error")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "hatchery_sweep_deleted_total", "category", "stories")
	require.NoError(t, err)
	assert.Equal(t, float64(2), got)

	sum, err := fetchHistogramSum(mfs, "hatchery_sweep_duration_seconds", "scope", "full")
	require.NoError(t, err)
	assert.InDelta(t, 0.12, sum, 0.001)
}

func TestNotificationMetricsNilSafe(t *testing.T) {
	var m *NotificationMetrics
	m.ObserveBroadcast("all", "all", 1, 0)
	m.IncPush(true)
	NewNotificationMetrics(nil).ObserveSweep("stories", time.Second, nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findSeries(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findSeries(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findSeries(mfs []*dto.MetricFamily, name, label, value string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric, nil
				}
			}
		}
		return nil, fmt.Errorf("%s has no series with %s=%s", name, label, value)
	}
	return nil, fmt.Errorf("metric %q not found", name)
}
