package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// sourcesFailedTotal and sourcesCannotConfirmTotal are package-level
// promauto vecs rather than a hand-rolled Counter-plus-Lock singleton:
// Prometheus client_golang's CounterVec is already safe for concurrent use
// across the collector's per-source worker goroutines, which is exactly
// the thread-safety original_source/src/features/status/metrics.py's
// StatusMetrics built by hand around a stdlib Counter and threading.Lock.
var (
	sourcesFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sources_failed_total",
			Help: "Total number of source failures by reason code",
		},
		[]string{"source_id", "reason_code"},
	)

	sourcesCannotConfirmTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sources_cannot_confirm_total",
			Help: "Total number of sources whose update status could not be confirmed",
		},
		[]string{"source_id"},
	)
)

// RecordSourceFailed increments the failure counter for sourceID/reasonCode.
func RecordSourceFailed(sourceID string, reasonCode ReasonCode) {
	sourcesFailedTotal.WithLabelValues(sourceID, string(reasonCode)).Inc()
}

// RecordSourceCannotConfirm increments the cannot-confirm counter for sourceID.
func RecordSourceCannotConfirm(sourceID string) {
	sourcesCannotConfirmTotal.WithLabelValues(sourceID).Inc()
}
