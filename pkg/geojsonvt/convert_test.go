// pkg/geojsonvt/convert_test.go - Unit tests for projection helpers
package geojsonvt

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name     string
		input    orb.Point
		expected orb.Point
	}{
		{"origin", orb.Point{0, 0}, orb.Point{0.5, 0.5}},
		{"west edge", orb.Point{-180, 0}, orb.Point{0, 0.5}},
		{"north limit", orb.Point{0, 85.0511287798}, orb.Point{0.5, 0}},
		{"south limit", orb.Point{0, -85.0511287798}, orb.Point{0.5, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.input)
			if math.Abs(got[0]-tt.expected[0]) > 1e-9 || math.Abs(got[1]-tt.expected[1]) > 1e-9 {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestProjectClampsPoles(t *testing.T) {
	if p := Project(orb.Point{0, 90}); p[1] != 0 {
		t.Errorf("Expected 0 at the north pole, got %g", p[1])
	}
	if p := Project(orb.Point{0, -90}); p[1] != 1 {
		t.Errorf("Expected 1 at the south pole, got %g", p[1])
	}
}

func TestProjectMatchesMaptile(t *testing.T) {
	points := []orb.Point{
		{-180, 0},
		{13.4, 52.5},
		{-73.98, 40.75},
		{151.2, -33.9},
		{0, 85.0511},
		{0, -85.0511},
		{179.9, -60},
	}

	for _, ll := range points {
		got := Project(ll)
		expected := maptile.Fraction(ll, 0)
		if math.Abs(got[0]-expected[0]) > 1e-12 || math.Abs(got[1]-expected[1]) > 1e-12 {
			t.Errorf("Expected %v for %v, got %v", expected, ll, got)
		}

		mirror := Project(orb.Point{ll[0], -ll[1]})
		if math.Abs(got[1]+mirror[1]-1) > 1e-12 {
			t.Errorf("Expected %v and its mirror to sum to 1, got %g and %g", ll, got[1], mirror[1])
		}
	}
}

func TestProjectBeyondSouthernLimit(t *testing.T) {
	// just past the limit maptile.Fraction answers the last row, 0 at zoom 0
	p := Project(orb.Point{0, -85.05112})
	if p[1] != 1 {
		t.Errorf("Expected 1 past the southern limit, got %g", p[1])
	}
}

func TestProjectRingSimplifies(t *testing.T) {
	points := []orb.Point{{0, 0}, {1, 0.000001}, {2, 0}, {3, 0.000001}, {4, 0}}

	ring := ProjectRing(points, LineString, 1e-4)
	if len(ring.Points) != 2 {
		t.Errorf("Expected collinear points to be removed, got %d points", len(ring.Points))
	}
	if ring.Size <= 0 {
		t.Errorf("Expected positive line length, got %g", ring.Size)
	}

	untouched := ProjectRing(points, LineString, 0)
	if len(untouched.Points) != len(points) {
		t.Errorf("Expected %d points without tolerance, got %d", len(points), len(untouched.Points))
	}
}

func TestNewFeatureBound(t *testing.T) {
	f := NewFeature(LineString, []ProjectedRing{
		NewRing(orb.LineString{{0.1, 0.2}, {0.3, 0.4}}, LineString),
		NewRing(orb.LineString{{0.5, 0.1}, {0.6, 0.15}}, LineString),
	}, nil)

	expected := orb.Bound{Min: orb.Point{0.1, 0.1}, Max: orb.Point{0.6, 0.4}}
	if f.Bound != expected {
		t.Errorf("Expected bound %v, got %v", expected, f.Bound)
	}
	if f.NumPoints() != 4 {
		t.Errorf("Expected 4 points, got %d", f.NumPoints())
	}
}
