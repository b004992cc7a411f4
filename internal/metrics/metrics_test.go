// internal/metrics/metrics_test.go - Unit tests for metrics exposure
package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesMetrics(t *testing.T) {
	TilesRenderedTotal.WithLabelValues("mvt").Inc()
	CacheHitsTotal.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"annotile_tiles_rendered_total",
		"annotile_cache_hits_total",
		"annotile_render_duration_ms",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected %s in metrics output", name)
		}
	}
}
