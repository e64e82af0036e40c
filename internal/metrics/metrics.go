// Package metrics exposes Prometheus instrumentation for the synchronizer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the datasync service's instruments.
type Metrics struct {
	RunsTotal      prometheus.Counter
	DevicesSynced  prometheus.Counter
	DeviceFailures *prometheus.CounterVec
	TablesCreated  prometheus.Counter
	RunDuration    prometheus.Histogram
}

// New creates and registers the instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datasync_runs_total",
			Help: "Completed sync cycles.",
		}),
		DevicesSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datasync_devices_synced_total",
			Help: "Device readings successfully persisted.",
		}),
		DeviceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datasync_device_failures_total",
			Help: "Per-device sync failures by reason.",
		}, []string{"reason"}),
		TablesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datasync_tables_created_total",
			Help: "Per-device tables provisioned on demand.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "datasync_run_duration_seconds",
			Help:    "Wall time of one full sync cycle.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	reg.MustRegister(m.RunsTotal, m.DevicesSynced, m.DeviceFailures, m.TablesCreated, m.RunDuration)
	return m
}
