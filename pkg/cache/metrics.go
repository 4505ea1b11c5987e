package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations.
var (
	// CacheHits counts responses served from Redis.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propwatch_cache_hits_total",
		Help: "Total responses served from the Redis cache",
	})

	// CacheMisses counts lookups that fell through to the backend.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propwatch_cache_misses_total",
		Help: "Total cache lookups that missed",
	})

	// CacheStoredBytes accumulates the size of stored entries.
	CacheStoredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propwatch_cache_stored_bytes_total",
		Help: "Total bytes written to the response cache",
	})

	// CacheInvalidations counts entries evicted after mutations.
	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propwatch_cache_invalidations_total",
		Help: "Total cache entries invalidated after write operations",
	})

	// CacheErrors counts failed cache operations by kind.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propwatch_cache_errors_total",
		Help: "Total cache operation errors by operation",
	}, []string{"operation"})
)
