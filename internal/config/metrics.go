package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// configLoadTimestamp and configValidationErrorsTotal are package-level
// promauto vars, following internal/observability/metrics/registry.go's
// wiring pattern. Adapted from the teacher's internal/pkg/config's
// NewConfigMetrics(componentName) factory: this pipeline has exactly one
// config loader per run rather than one per worker/fetcher/summarizer
// component, so the component-name parameterization that factory exists
// for doesn't apply here and the metrics are declared directly.
var (
	configLoadTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "config_load_timestamp",
		Help: "Unix timestamp of the last successful configuration load",
	})

	configValidationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "config_validation_errors_total",
			Help: "Total number of configuration validation errors by field",
		},
		[]string{"field"},
	)
)

func recordLoadTimestamp() {
	configLoadTimestamp.SetToCurrentTime()
}

func recordValidationError(field string) {
	configValidationErrorsTotal.WithLabelValues(field).Inc()
}
