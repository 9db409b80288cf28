// Package metrics provides the centralized Prometheus metrics registry for
// the scene exporter. All metrics are defined in their respective packages
// (stash, export) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the exporter.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/stash):
//   - stash_requests_total{operation, status} (Counter): GraphQL requests by operation and HTTP status
//   - stash_request_duration_seconds{operation} (Histogram): Request duration by operation
//
// Export Metrics (pkg/export):
//   - stash_export_pages_total (Counter): Scene catalog pages fetched
//   - stash_export_scenes_total (Counter): Scenes normalized into export records
//   - stash_export_scenes_skipped_total (Counter): Malformed scenes skipped
//   - stash_export_run_duration_seconds (Histogram): Full extraction run duration
//
// Example Prometheus Queries:
//
//   # Skip Rate
//   rate(stash_export_scenes_skipped_total[5m]) /
//   (rate(stash_export_scenes_total[5m]) + rate(stash_export_scenes_skipped_total[5m]))
//
//   # Request Error Rate
//   sum(rate(stash_requests_total{status!~"2.."}[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(stash_request_duration_seconds_bucket[5m]))
