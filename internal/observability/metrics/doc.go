// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the digest pipeline's ambient metrics:
//   - HTTP request metrics for the health server (duration, count, size)
//   - Database connection-pool gauges
//   - Named-operation duration metrics for pipeline stages
//
// All metrics are registered with the Prometheus default registry and
// exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "digestpipe/internal/observability/metrics"
//
//	func runStage(name string) {
//	    start := time.Now()
//	    // ... run stage ...
//	    metrics.RecordOperationDuration(name, time.Since(start))
//	}
package metrics
