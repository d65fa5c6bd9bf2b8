// Package metrics provides Prometheus metrics for folio.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SearchTotal counts search requests by mode and outcome.
	SearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "search_total",
			Help:      "Total number of article searches",
		},
		[]string{"mode", "outcome"},
	)

	// SearchDuration measures search latency including storage.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "folio",
			Name:      "search_duration_seconds",
			Help:      "Duration of article searches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// PredicateCacheTotal counts predicate cache lookups.
	PredicateCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "predicate_cache_total",
			Help:      "Predicate cache lookups by result",
		},
		[]string{"result"},
	)

	// TagConflictsTotal counts tag upserts that hit a uniqueness conflict.
	TagConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "tag_conflicts_total",
			Help:      "Tag upserts retried after a uniqueness conflict",
		},
	)

	// ArticleWritesTotal counts article mutations.
	ArticleWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "article_writes_total",
			Help:      "Article mutations by operation and status",
		},
		[]string{"operation", "status"},
	)
)

// RecordSearch records a finished search.
func RecordSearch(mode, outcome string, seconds float64) {
	SearchTotal.WithLabelValues(mode, outcome).Inc()
	SearchDuration.WithLabelValues(mode).Observe(seconds)
}

// RecordCache records a predicate cache hit or miss.
func RecordCache(hit bool) {
	if hit {
		PredicateCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	PredicateCacheTotal.WithLabelValues("miss").Inc()
}

// RecordTagConflict records one retried tag upsert.
func RecordTagConflict() {
	TagConflictsTotal.Inc()
}

// RecordWrite records an article mutation.
func RecordWrite(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ArticleWritesTotal.WithLabelValues(operation, status).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
