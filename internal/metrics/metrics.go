// Package metrics holds the process-wide Prometheus collectors for
// ProbySDK's own operation: ingest/drop counts, buffer occupancy,
// transport connection state, pairing attempts, and journal size.
//
// Grounded on internal/metrics/metrics.go's promauto.New*Vec idiom,
// re-themed from log-capture-pipeline metrics to SDK-internal ones. The
// HTTP endpoint that exposes these (promhttp.Handler) lives in
// internal/diagnostics, not here — this package only owns the
// collectors themselves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestedTotal counts entries accepted into the ring buffer, by
	// category and level.
	IngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probysdk_ingested_total",
			Help: "Total log entries accepted into the ring buffer",
		},
		[]string{"category", "level"},
	)

	// DroppedTotal counts entries that never reached the buffer, by
	// reason; the engine records only rate_limited.
	DroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probysdk_dropped_total",
			Help: "Total log entries dropped before buffering",
		},
		[]string{"reason"},
	)

	// BufferOccupancy tracks how full each ring is (main/priority).
	BufferOccupancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "probysdk_buffer_occupancy",
			Help: "Current entry count in a ring buffer",
		},
		[]string{"ring"},
	)

	// FlushDuration measures time spent draining the buffer and handing
	// a batch to the transport layer.
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "probysdk_flush_duration_seconds",
			Help:    "Time spent flushing the ring buffer to the transport layer",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ActiveConnections tracks live WebSocket viewer connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "probysdk_active_connections",
			Help: "Current number of connected viewer sessions",
		},
	)

	// AuthenticatedConnections tracks viewer connections that completed
	// pairing (or never needed to).
	AuthenticatedConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "probysdk_authenticated_connections",
			Help: "Current number of authenticated viewer sessions",
		},
	)

	// PairingAttemptsTotal counts PIN validation attempts by outcome.
	PairingAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probysdk_pairing_attempts_total",
			Help: "Total pairing attempts by outcome",
		},
		[]string{"result"},
	)

	// JournalBytes tracks the on-disk size of the active journal file.
	JournalBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "probysdk_journal_bytes",
			Help: "Current size in bytes of the active journal file",
		},
	)

	// CollectorUp reports whether a registered collector is currently
	// running, keyed by collector name.
	CollectorUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "probysdk_collector_up",
			Help: "1 if the named collector is running, 0 otherwise",
		},
		[]string{"collector"},
	)
)

// RecordIngested increments IngestedTotal for one accepted entry.
func RecordIngested(category, level string) {
	IngestedTotal.WithLabelValues(category, level).Inc()
}

// RecordDropped increments DroppedTotal for one entry that never reached
// the buffer.
func RecordDropped(reason string) {
	DroppedTotal.WithLabelValues(reason).Inc()
}

// RecordPairingAttempt increments PairingAttemptsTotal for one PIN
// validation outcome ("success" or "failure").
func RecordPairingAttempt(result string) {
	PairingAttemptsTotal.WithLabelValues(result).Inc()
}

// SetCollectorUp reports a collector's running state.
func SetCollectorUp(collector string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	CollectorUp.WithLabelValues(collector).Set(v)
}
