// internal/source/source_test.go - Unit tests for annotation loaders
package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/spf13/viper"

	"github.com/valpere/annotation_tiler/internal"
	"github.com/valpere/annotation_tiler/internal/config"
	"github.com/valpere/annotation_tiler/pkg/annotation"
	"github.com/valpere/annotation_tiler/pkg/geometry"
)

const testCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 7, "properties": {"name": "route"},
     "geometry": {"type": "LineString", "coordinates": [[0, 0], [10, 10]]}},
    {"type": "Feature", "properties": {"maxzoom": 10},
     "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]]]}},
    {"type": "Feature", "id": 3,
     "geometry": {"type": "Point", "coordinates": [5, 5]}}
  ]
}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(viper.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return cfg
}

func gzipped(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(data)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return buf.Bytes()
}

func checkCollection(t *testing.T, shapes []*annotation.ShapeAnnotation) {
	t.Helper()
	if len(shapes) != 2 {
		t.Fatalf("Expected 2 annotations, got %d", len(shapes))
	}

	if shapes[0].ID() != 7 {
		t.Errorf("Expected first id 7, got %d", shapes[0].ID())
	}
	if shapes[0].MaxZoom() != 16 {
		t.Errorf("Expected default max zoom 16, got %d", shapes[0].MaxZoom())
	}
	if shapes[0].Properties()["name"] != "route" {
		t.Errorf("Expected name property, got %v", shapes[0].Properties())
	}

	if shapes[1].ID() != 1 {
		t.Errorf("Expected sequential id 1, got %d", shapes[1].ID())
	}
	if shapes[1].MaxZoom() != 10 {
		t.Errorf("Expected max zoom override 10, got %d", shapes[1].MaxZoom())
	}
	if _, ok := shapes[1].Properties()[MaxZoomProperty]; ok {
		t.Error("Expected max zoom property to be consumed")
	}
	if shapes[1].Geometry().Kind() != geometry.KindPolygon {
		t.Errorf("Expected polygon, got %s", shapes[1].Geometry().Kind())
	}
}

func TestGeoJSONLoader(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "shapes.geojson")
	if err := os.WriteFile(plain, []byte(testCollection), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	compressed := filepath.Join(dir, "shapes.geojson.gz")
	if err := os.WriteFile(compressed, gzipped(t, testCollection), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, path := range []string{plain, compressed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			shapes, err := NewGeoJSONLoader(path, 16).Load(context.Background())
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			checkCollection(t, shapes)
		})
	}
}

func TestGeoJSONLoaderErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewGeoJSONLoader(filepath.Join(dir, "missing.geojson"), 16).Load(context.Background())
	if code := internal.ErrorCodeOf(err); code != internal.ErrorCodeNotFound {
		t.Errorf("Expected %s, got %s (%v)", internal.ErrorCodeNotFound, code, err)
	}

	_, err = NewGeoJSONLoader(dir, 16).Load(context.Background())
	if code := internal.ErrorCodeOf(err); code != internal.ErrorCodeValidation {
		t.Errorf("Expected %s, got %s (%v)", internal.ErrorCodeValidation, code, err)
	}

	broken := filepath.Join(dir, "broken.geojson")
	if err := os.WriteFile(broken, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	_, err = NewGeoJSONLoader(broken, 16).Load(context.Background())
	if code := internal.ErrorCodeOf(err); code != internal.ErrorCodeProcessing {
		t.Errorf("Expected %s, got %s (%v)", internal.ErrorCodeProcessing, code, err)
	}
}

func TestFeatureID(t *testing.T) {
	tests := []struct {
		input    interface{}
		expected annotation.ID
		ok       bool
	}{
		{float64(12), 12, true},
		{float64(-1), 0, false},
		{1.5, 0, false},
		{"42", 42, true},
		{"abc", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		id, ok := featureID(tt.input)
		if ok != tt.ok || id != tt.expected {
			t.Errorf("featureID(%v): expected (%d, %v), got (%d, %v)", tt.input, tt.expected, tt.ok, id, ok)
		}
	}
}

func TestHTTPLoaderRetries(t *testing.T) {
	var hits atomic.Int32
	body := gzipped(t, testCollection)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("Expected configured header, got %q", r.Header.Get("X-Api-Key"))
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(body)
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Source.URL = server.URL
	cfg.Source.Headers = map[string]string{"X-Api-Key": "secret"}

	loader := NewHTTPLoader(cfg)
	loader.backoff = func(int) time.Duration { return 0 }

	shapes, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected 2 requests, got %d", hits.Load())
	}
	checkCollection(t, shapes)
}

func TestHTTPLoaderClientError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Source.URL = server.URL

	loader := NewHTTPLoader(cfg)
	loader.backoff = func(int) time.Duration { return 0 }

	_, err := loader.Load(context.Background())
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if hits.Load() != 1 {
		t.Errorf("Expected client errors not to be retried, got %d requests", hits.Load())
	}
	if code := internal.ErrorCodeOf(err); code != internal.ErrorCodeNetwork {
		t.Errorf("Expected %s, got %s", internal.ErrorCodeNetwork, code)
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{0, true},
		{-1, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		if got := shouldRetry(tt.status); got != tt.expected {
			t.Errorf("shouldRetry(%d): expected %v, got %v", tt.status, tt.expected, got)
		}
	}
}

func TestWayAnnotation(t *testing.T) {
	areaTags := []string{"building", "landuse"}

	closed := &osm.Way{
		ID: 101,
		Nodes: osm.WayNodes{
			{ID: 1, Lon: 0, Lat: 1},
			{ID: 2, Lon: 1, Lat: 1},
			{ID: 3, Lon: 1, Lat: 2},
			{ID: 1, Lon: 0, Lat: 1},
		},
		Tags: osm.Tags{{Key: "building", Value: "yes"}},
	}

	shape, ok := wayAnnotation(closed, nil, areaTags, 14)
	if !ok {
		t.Fatal("Expected closed way to convert")
	}
	if shape.ID() != 101 {
		t.Errorf("Expected id 101, got %d", shape.ID())
	}
	if shape.Geometry().Kind() != geometry.KindPolygon {
		t.Errorf("Expected polygon, got %s", shape.Geometry().Kind())
	}
	if shape.Properties()["building"] != "yes" {
		t.Errorf("Expected building tag, got %v", shape.Properties())
	}
	if shape.MaxZoom() != 14 {
		t.Errorf("Expected max zoom 14, got %d", shape.MaxZoom())
	}

	closed.Tags = osm.Tags{{Key: "highway", Value: "pedestrian"}}
	shape, _ = wayAnnotation(closed, nil, areaTags, 14)
	if shape.Geometry().Kind() != geometry.KindLineString {
		t.Errorf("Expected untagged closed way to be a line, got %s", shape.Geometry().Kind())
	}

	unresolved := &osm.Way{
		ID:    102,
		Nodes: osm.WayNodes{{ID: 10}, {ID: 11}, {ID: 12}},
	}
	locations := map[osm.NodeID]orb.Point{
		10: {2, 2},
		11: {3, 3},
	}
	shape, ok = wayAnnotation(unresolved, locations, areaTags, 14)
	if !ok {
		t.Fatal("Expected way with resolved locations to convert")
	}
	line := shape.Geometry().(geometry.LineString)
	if len(line) != 2 || line[1] != (orb.Point{3, 3}) {
		t.Errorf("Expected resolved line, got %v", line)
	}

	delete(locations, 11)
	if _, ok := wayAnnotation(unresolved, locations, areaTags, 14); ok {
		t.Error("Expected way with a single location to be skipped")
	}
}

func TestRowAnnotation(t *testing.T) {
	shape, err := rowAnnotation(5, `{"type":"LineString","coordinates":[[0,0],[1,1]]}`, sql.NullInt64{}, 16)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if shape.ID() != 5 || shape.MaxZoom() != 16 {
		t.Errorf("Expected id 5 zoom 16, got id %d zoom %d", shape.ID(), shape.MaxZoom())
	}

	shape, err = rowAnnotation(6, `{"type":"LineString","coordinates":[[0,0],[1,1]]}`, sql.NullInt64{Int64: 30, Valid: true}, 16)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if shape.MaxZoom() != annotation.MaxZoomLimit {
		t.Errorf("Expected clamped max zoom, got %d", shape.MaxZoom())
	}

	_, err = rowAnnotation(7, `{"type":"Point","coordinates":[0,0]}`, sql.NullInt64{}, 16)
	if !errors.Is(err, annotation.ErrUnsupportedGeometryKind) {
		t.Errorf("Expected unsupported geometry error, got %v", err)
	}

	if _, err := rowAnnotation(-1, `{"type":"LineString","coordinates":[[0,0],[1,1]]}`, sql.NullInt64{}, 16); err == nil {
		t.Error("Expected negative id to be rejected")
	}
	if _, err := rowAnnotation(8, `not json`, sql.NullInt64{}, 16); err == nil {
		t.Error("Expected invalid GeoJSON to be rejected")
	}
}

type staticLoader []*annotation.ShapeAnnotation

func (l staticLoader) Load(context.Context) ([]*annotation.ShapeAnnotation, error) {
	return l, nil
}

func TestPopulate(t *testing.T) {
	line := geometry.LineString{{0, 0}, {1, 1}}
	loader := staticLoader{
		annotation.NewShapeAnnotation(1, line),
		annotation.NewShapeAnnotation(2, line),
		annotation.NewShapeAnnotation(1, line),
	}

	src := annotation.NewSource()
	added, err := Populate(context.Background(), loader, src)
	if added != 2 {
		t.Errorf("Expected 2 annotations added, got %d", added)
	}
	if err == nil {
		t.Error("Expected duplicate id to be reported")
	}
	if src.Len() != 2 {
		t.Errorf("Expected source to hold 2 annotations, got %d", src.Len())
	}
}

func TestNewLoader(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*config.Config)
		want    interface{}
		wantErr bool
	}{
		{"geojson", func(c *config.Config) { c.Source.Path = "a.geojson" }, &GeoJSONLoader{}, false},
		{"geojson without path", func(c *config.Config) {}, nil, true},
		{"http", func(c *config.Config) { c.Source.URL = "https://example.com/a.geojson" }, &HTTPLoader{}, false},
		{"osm", func(c *config.Config) { c.Source.Path = "extract.osm.pbf" }, &OSMLoader{}, false},
		{"postgres", func(c *config.Config) { c.Source.DSN = "postgres://localhost/db" }, &PostgresLoader{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(cfg)

			loader, err := NewLoader(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLoader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			switch tt.want.(type) {
			case *GeoJSONLoader:
				_, ok := loader.(*GeoJSONLoader)
				if !ok {
					t.Errorf("Expected GeoJSONLoader, got %T", loader)
				}
			case *HTTPLoader:
				_, ok := loader.(*HTTPLoader)
				if !ok {
					t.Errorf("Expected HTTPLoader, got %T", loader)
				}
			case *OSMLoader:
				_, ok := loader.(*OSMLoader)
				if !ok {
					t.Errorf("Expected OSMLoader, got %T", loader)
				}
			case *PostgresLoader:
				_, ok := loader.(*PostgresLoader)
				if !ok {
					t.Errorf("Expected PostgresLoader, got %T", loader)
				}
			}
		})
	}
}
