package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BackupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kvault_backup_duration_seconds",
			Help:    "Time taken to complete a backup operation in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	RestoreDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kvault_restore_duration_seconds",
			Help:    "Time taken to complete a restore operation in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	BackupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvault_backups_total",
			Help: "Total number of backup operations by outcome",
		},
		[]string{"outcome"}, // "ok", "degraded", "failed"
	)

	RestoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvault_restores_total",
			Help: "Total number of restore operations by outcome",
		},
		[]string{"outcome"},
	)

	KindErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvault_kind_errors_total",
			Help: "Total number of per-kind export/import failures",
		},
		[]string{"kind", "direction"}, // direction: "export" | "import"
	)

	EntitiesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvault_entities_processed_total",
			Help: "Total number of entities exported or imported",
		},
		[]string{"kind", "direction"},
	)

	StorageOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kvault_storage_op_duration_seconds",
			Help:    "Time taken by a storage backend operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

func init() {
	prometheus.MustRegister(BackupDuration)
	prometheus.MustRegister(RestoreDuration)
	prometheus.MustRegister(BackupsTotal)
	prometheus.MustRegister(RestoresTotal)
	prometheus.MustRegister(KindErrorsTotal)
	prometheus.MustRegister(EntitiesProcessedTotal)
	prometheus.MustRegister(StorageOpDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
