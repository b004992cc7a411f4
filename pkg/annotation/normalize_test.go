// pkg/annotation/normalize_test.go - Unit tests for geometry normalization
package annotation

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/valpere/annotation_tiler/pkg/geojsonvt"
	"github.com/valpere/annotation_tiler/pkg/geometry"
)

func TestWrapLongitude(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0, 0},
		{179.5, 179.5},
		{-180, -180},
		{180, -180},
		{190, -170},
		{-190, 170},
		{540, -180},
		{-540, -180},
		{725, 5},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}

	for _, tt := range tests {
		got := WrapLongitude(tt.input)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("WrapLongitude(%v): expected %v, got %v", tt.input, tt.expected, got)
		}
		if got < -180 || got >= 180 {
			t.Errorf("WrapLongitude(%v): expected result in [-180, 180), got %v", tt.input, got)
		}
	}
}

func TestClampLatitude(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0, 0},
		{45, 45},
		{90, LatitudeMax},
		{-100, -LatitudeMax},
		{math.Inf(1), LatitudeMax},
		{math.Inf(-1), -LatitudeMax},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		if got := ClampLatitude(tt.input); got != tt.expected {
			t.Errorf("ClampLatitude(%v): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestTolerance(t *testing.T) {
	expected := 4.0 / (65536 * 4096)
	if got := Tolerance(16); got != expected {
		t.Errorf("Expected %g, got %g", expected, got)
	}

	for z := uint8(0); z < MaxZoomLimit; z++ {
		if Tolerance(z) <= Tolerance(z+1) {
			t.Errorf("Expected tolerance to shrink from zoom %d to %d", z, z+1)
		}
	}
}

func TestNormalizeRejectsPoints(t *testing.T) {
	inputs := []geometry.Geometry{
		geometry.Point{1, 2},
		geometry.MultiPoint{{1, 2}, {3, 4}},
		nil,
	}

	for _, g := range inputs {
		f, err := Normalize(g, Tolerance(16))
		if !errors.Is(err, ErrUnsupportedGeometryKind) {
			t.Errorf("Expected ErrUnsupportedGeometryKind for %v, got %v", g, err)
		}
		if f != nil {
			t.Errorf("Expected no feature for %v", g)
		}
	}
}

func TestNormalizeClosesPolygonRings(t *testing.T) {
	g := geometry.Polygon{{{0, 0}, {0, 10}, {10, 0}}}

	f, err := Normalize(g, Tolerance(16))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Type != geojsonvt.Polygon {
		t.Errorf("Expected Polygon, got %s", f.Type)
	}
	if len(f.Rings) != 1 {
		t.Fatalf("Expected 1 ring, got %d", len(f.Rings))
	}

	ring := f.Rings[0].Points
	if len(ring) != 4 {
		t.Errorf("Expected 4 points, got %d", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Errorf("Expected closed ring, got first %v last %v", ring[0], ring[len(ring)-1])
	}
}

func TestNormalizeKeepsLinesOpen(t *testing.T) {
	g := geometry.LineString{{0, 0}, {10, 0}, {0, 10}}

	f, err := Normalize(g, Tolerance(16))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Type != geojsonvt.LineString {
		t.Errorf("Expected LineString, got %s", f.Type)
	}

	ring := f.Rings[0].Points
	if len(ring) != 3 {
		t.Errorf("Expected 3 points, got %d", len(ring))
	}
	if ring[0] == ring[len(ring)-1] {
		t.Error("Expected line to stay open")
	}
}

func TestNormalizeMultiPart(t *testing.T) {
	tests := []struct {
		name     string
		input    geometry.Geometry
		expected int
	}{
		{
			name:     "multi line string",
			input:    geometry.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}},
			expected: 2,
		},
		{
			name: "polygon hole is dropped",
			input: geometry.Polygon{
				{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
				{{2, 2}, {2, 8}, {8, 8}, {8, 2}, {2, 2}},
			},
			expected: 1,
		},
		{
			name: "multi polygon",
			input: geometry.MultiPolygon{
				{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
				{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}},
			},
			expected: 2,
		},
		{
			name:     "degenerate line is dropped",
			input:    geometry.MultiLineString{{{0, 0}}, {{2, 2}, {3, 3}}},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Normalize(tt.input, Tolerance(16))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(f.Rings) != tt.expected {
				t.Errorf("Expected %d rings, got %d", tt.expected, len(f.Rings))
			}
		})
	}
}

func TestNormalizeOutOfRangeInput(t *testing.T) {
	g := geometry.LineString{{400, 100}, {-400, -100}, {math.NaN(), math.Inf(1)}}

	f, err := Normalize(g, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, p := range f.Rings[0].Points {
		if p[0] < 0 || p[0] >= 1 || p[1] < 0 || p[1] > 1 {
			t.Errorf("Expected normalized point in [0,1], got %v", p)
		}
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			t.Errorf("Expected finite point, got %v", p)
		}
	}
}

func TestNormalizeDoesNotModifyInput(t *testing.T) {
	g := geometry.Polygon{{{0, 0}, {0, 10}, {200, 0}}}

	if _, err := Normalize(g, Tolerance(4)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(g[0]) != 3 || g[0][2] != (orb.Point{200, 0}) {
		t.Errorf("Expected input to be untouched, got %v", g[0])
	}
}
