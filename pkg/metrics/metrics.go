// Package metrics documents the Prometheus metrics exposed by this module.
// The metrics themselves are defined next to the code they observe (pkg/api,
// pkg/cache, pkg/fetch, pkg/poll) via promauto, which registers them on the
// default registry; this package only holds the registry reference and the
// catalog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the Prometheus registry used by the module.
var Registry = prometheus.DefaultRegisterer

// Metrics catalog
//
// Request metrics (pkg/api):
//   - propwatch_requests_total{endpoint, status} (Counter): backend requests
//     by endpoint and HTTP status ("cached" and "cancelled" are synthetic
//     statuses)
//   - propwatch_request_duration_seconds{endpoint} (Histogram): request
//     duration, buckets sized for a backend that can cold-start
//   - propwatch_errors_total{class} (Counter): failures by class
//     (client, server, timeout, network)
//
// Cache metrics (pkg/cache):
//   - propwatch_cache_hits_total (Counter)
//   - propwatch_cache_misses_total (Counter)
//   - propwatch_cache_stored_bytes_total (Counter)
//   - propwatch_cache_invalidations_total (Counter)
//   - propwatch_cache_errors_total{operation} (Counter)
//
// Fetch controller metrics (pkg/fetch):
//   - propwatch_fetch_attempts_total{result} (Counter): result is success,
//     failure, timeout or cancelled
//   - propwatch_fetch_guard_timeouts_total (Counter)
//
// Poll controller metrics (pkg/poll):
//   - propwatch_poll_attempts_total{result} (Counter)
//   - propwatch_poll_backoff_seconds (Histogram): scheduled delay before
//     the next attempt
//   - propwatch_poll_suppressed_errors_total (Counter): failures hidden
//     from observers as transient
//
// Example queries:
//
//   # Cache hit rate
//   rate(propwatch_cache_hits_total[5m]) /
//   (rate(propwatch_cache_hits_total[5m]) + rate(propwatch_cache_misses_total[5m]))
//
//   # Poll health
//   rate(propwatch_poll_attempts_total{result="failure"}[5m])
//
//   # P95 backend latency
//   histogram_quantile(0.95, rate(propwatch_request_duration_seconds_bucket[5m]))
