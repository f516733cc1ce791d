// Package metrics defines the Prometheus collectors for the build and
// query phases and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	DocsParsedTotal    prometheus.Counter
	DocsIndexedTotal   prometheus.Counter
	TermsIndexed       prometheus.Gauge
	TermDocPairs       prometheus.Gauge
	IndexBuildDuration prometheus.Histogram
	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      prometheus.Histogram
	SearchResultsCount prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
}

// New creates and registers all engine metrics.
func New() *Metrics {
	m := &Metrics{
		DocsParsedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newswire_docs_parsed_total",
			Help: "Total documents parsed from corpus files.",
		}),
		DocsIndexedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newswire_docs_indexed_total",
			Help: "Total documents fed into an index build.",
		}),
		TermsIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newswire_index_terms",
			Help: "Distinct terms in the most recent index build.",
		}),
		TermDocPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newswire_index_term_doc_pairs",
			Help: "Term-document pairs in the most recent index build.",
		}),
		IndexBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newswire_index_build_duration_seconds",
			Help:    "Wall-clock duration of index builds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newswire_search_queries_total",
				Help: "Search queries by outcome (hit, zero_result, empty_query, error).",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newswire_search_latency_seconds",
			Help:    "Search latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		SearchResultsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newswire_search_results",
			Help:    "Matched documents per query before truncation.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 10000},
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newswire_cache_hits_total",
			Help: "Query cache hits.",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newswire_cache_misses_total",
			Help: "Query cache misses.",
		}),
	}
	prometheus.MustRegister(
		m.DocsParsedTotal,
		m.DocsIndexedTotal,
		m.TermsIndexed,
		m.TermDocPairs,
		m.IndexBuildDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)
	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
