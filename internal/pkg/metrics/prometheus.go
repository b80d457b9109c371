package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Orchestrator tick metrics
	tickTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "monitor",
			Name:      "ticks_total",
			Help:      "Total number of orchestrator ticks",
		},
		[]string{"result"},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "costwatch",
			Subsystem: "monitor",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a full orchestrator tick in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
	)

	phaseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "monitor",
			Name:      "phase_errors_total",
			Help:      "Errors per orchestrator phase",
		},
		[]string{"phase"},
	)

	// Anomaly detection metrics
	anomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "anomaly",
			Name:      "detected_total",
			Help:      "Total number of detected cost anomalies",
		},
		[]string{"severity", "type"},
	)

	// Budget alert metrics
	alertsTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "budget",
			Name:      "alerts_triggered_total",
			Help:      "Total number of alert transitions into triggered",
		},
	)

	alertsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "budget",
			Name:      "alerts_resolved_total",
			Help:      "Total number of alert transitions into resolved",
		},
	)

	// Metrics cache
	snapshotAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "costwatch",
			Subsystem: "cache",
			Name:      "snapshot_age_seconds",
			Help:      "Age of the real-time metrics snapshot",
		},
	)

	snapshotRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "cache",
			Name:      "refreshes_total",
			Help:      "Snapshot refresh attempts by result",
		},
		[]string{"result"},
	)

	// Store metrics
	storeQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "costwatch",
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Store query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTick records a completed orchestrator tick.
func RecordTick(result string, duration time.Duration) {
	tickTotal.WithLabelValues(result).Inc()
	tickDuration.Observe(duration.Seconds())
}

// RecordPhaseError counts a fault-isolated phase failure.
func RecordPhaseError(phase string) {
	phaseErrors.WithLabelValues(phase).Inc()
}

// RecordAnomaly counts a detected anomaly.
func RecordAnomaly(severity, anomalyType string) {
	anomaliesDetected.WithLabelValues(severity, anomalyType).Inc()
}

// RecordAlertTriggered counts an active to triggered transition.
func RecordAlertTriggered() {
	alertsTriggered.Inc()
}

// RecordAlertResolved counts a triggered to resolved transition.
func RecordAlertResolved() {
	alertsResolved.Inc()
}

// SetSnapshotAge sets the gauge for the snapshot's age.
func SetSnapshotAge(age time.Duration) {
	snapshotAge.Set(age.Seconds())
}

// RecordRefresh counts a snapshot refresh attempt.
func RecordRefresh(result string) {
	snapshotRefreshes.WithLabelValues(result).Inc()
}

// RecordStoreQuery records a store query duration.
func RecordStoreQuery(query string, duration time.Duration) {
	storeQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}
