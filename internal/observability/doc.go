// Package observability provides the pipeline's observability infrastructure:
// structured logging and Prometheus metrics.
//
// This package centralizes observability concerns to enable:
//   - Structured logging with run-scoped context
//   - Prometheus metrics for monitoring
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//
// Example usage:
//
//	import (
//	    "digestpipe/internal/observability/logging"
//	    "digestpipe/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("run started")
//
//	    metrics.RecordOperationDuration("collect", elapsed)
//	}
package observability
