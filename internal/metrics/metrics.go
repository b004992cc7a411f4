// internal/metrics/metrics.go - Prometheus metrics
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TilesRenderedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "annotile_tiles_rendered_total",
		Help: "Total number of rendered tiles by output format",
	}, []string{"format"})
	TilesEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "annotile_tiles_empty_total",
		Help: "Total number of rendered tiles without features",
	})
	FeaturesEmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "annotile_features_emitted_total",
		Help: "Total number of tile features produced",
	})
	RenderDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "annotile_render_duration_ms",
		Help:    "Tile render duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "annotile_cache_hits_total",
		Help: "Total encoded tile cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "annotile_cache_misses_total",
		Help: "Total encoded tile cache misses",
	})
	BatchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "annotile_batch_failures_total",
		Help: "Total number of tiles that failed during batch rendering",
	})
)

func init() {
	prometheus.MustRegister(TilesRenderedTotal)
	prometheus.MustRegister(TilesEmptyTotal)
	prometheus.MustRegister(FeaturesEmittedTotal)
	prometheus.MustRegister(RenderDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(BatchFailuresTotal)
}

// Handler exposes the registered metrics for scraping
func Handler() http.Handler { return promhttp.Handler() }
