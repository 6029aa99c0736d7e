package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "render_duration_seconds",
			Help:    "Total duration of a static render pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	renderFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "render_failures_total",
			Help: "Total number of failed render passes",
		},
	)

	renderBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "render_bytes_written_total",
			Help: "Total bytes written across all rendered files",
		},
	)

	filesGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "render_files_generated_total",
			Help: "Total number of files written by the renderer",
		},
	)

	templateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "render_template_duration_seconds",
			Help:    "Duration of rendering a single template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"template"},
	)

	dayPagesPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "render_day_pages_pruned_total",
			Help: "Total number of day pages removed by retention pruning",
		},
	)
)
