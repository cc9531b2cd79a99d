// Package stats provides a small metrics abstraction so the service can run
// with no metrics, log-based metrics, or Prometheus without changing callers.
package stats

// Metric names recorded by the service.
const (
	MetricCacheHits     = "feedwise_cache_hits_total"
	MetricCacheMisses   = "feedwise_cache_misses_total"
	MetricCacheErrors   = "feedwise_cache_errors_total"
	MetricInvalidations = "feedwise_cache_invalidations_total"
	MetricCacheEntries  = "feedwise_cache_entries"
)

// Collector receives metric updates.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)
}
