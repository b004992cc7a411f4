// pkg/geojsonvt/geojsonvt_test.go - Unit tests for the tile index
package geojsonvt

import (
	"testing"

	"github.com/paulmach/orb"
)

func testOptions(maxZoom uint8) Options {
	opts := DefaultOptions()
	opts.MaxZoom = maxZoom
	return opts
}

func lineFeature(points ...orb.Point) *ProjectedFeature {
	return NewFeature(LineString, []ProjectedRing{NewRing(orb.LineString(points), LineString)}, nil)
}

func polygonFeature(points ...orb.Point) *ProjectedFeature {
	return NewFeature(Polygon, []ProjectedRing{NewRing(orb.LineString(points), Polygon)}, nil)
}

func TestGetTileRootLine(t *testing.T) {
	vt := New([]*ProjectedFeature{lineFeature(orb.Point{0.25, 0.25}, orb.Point{0.75, 0.75})}, testOptions(4))

	tile := vt.GetTile(0, 0, 0)
	if tile == nil {
		t.Fatal("Expected tile at 0/0/0")
	}
	if len(tile.Features) != 1 {
		t.Fatalf("Expected 1 feature, got %d", len(tile.Features))
	}

	ring := tile.Features[0].Rings[0]
	expected := TileRing{{1024, 1024}, {3072, 3072}}
	if len(ring) != len(expected) {
		t.Fatalf("Expected %d points, got %d", len(expected), len(ring))
	}
	for i := range expected {
		if ring[i] != expected[i] {
			t.Errorf("Expected point %d to be %v, got %v", i, expected[i], ring[i])
		}
	}
}

func TestGetTileClipsWithBuffer(t *testing.T) {
	vt := New([]*ProjectedFeature{lineFeature(orb.Point{0.25, 0.25}, orb.Point{0.75, 0.75})}, testOptions(4))

	tile := vt.GetTile(1, 0, 0)
	if tile == nil {
		t.Fatal("Expected tile at 1/0/0")
	}
	ring := tile.Features[0].Rings[0]
	if ring[0] != (TilePoint{2048, 2048}) {
		t.Errorf("Expected start {2048 2048}, got %v", ring[0])
	}
	if ring[len(ring)-1] != (TilePoint{4160, 4160}) {
		t.Errorf("Expected end clipped at buffer {4160 4160}, got %v", ring[len(ring)-1])
	}

	corner := vt.GetTile(1, 1, 0)
	if corner == nil {
		t.Fatal("Expected buffered tile at 1/1/0")
	}
	ring = corner.Features[0].Rings[0]
	if ring[0] != (TilePoint{-64, 4032}) || ring[len(ring)-1] != (TilePoint{64, 4160}) {
		t.Errorf("Expected buffered segment from {-64 4032} to {64 4160}, got %v", ring)
	}
}

func TestGetTileOutOfRange(t *testing.T) {
	vt := New([]*ProjectedFeature{lineFeature(orb.Point{0.25, 0.25}, orb.Point{0.3, 0.3})}, testOptions(4))

	tests := []struct {
		name string
		z    uint8
		x, y uint32
	}{
		{"zoom above max", 5, 0, 0},
		{"x outside pyramid", 1, 2, 0},
		{"y outside pyramid", 1, 0, 2},
		{"no geometry in tile", 2, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tile := vt.GetTile(tt.z, tt.x, tt.y); tile != nil {
				t.Errorf("Expected no tile, got %+v", tile)
			}
		})
	}
}

func TestGetTileIsCached(t *testing.T) {
	vt := New([]*ProjectedFeature{lineFeature(orb.Point{0.25, 0.25}, orb.Point{0.75, 0.75})}, testOptions(8))

	first := vt.GetTile(8, 100, 100)
	count := vt.TileCount()
	second := vt.GetTile(8, 100, 100)

	if first == nil || first != second {
		t.Errorf("Expected repeated queries to return the cached tile, got %p and %p", first, second)
	}
	if vt.TileCount() != count {
		t.Errorf("Expected no new tiles on repeated query, got %d then %d", count, vt.TileCount())
	}
}

func TestToleranceIsMonotonic(t *testing.T) {
	vt := New(nil, testOptions(16))

	for z := uint8(0); z < 16; z++ {
		if vt.ToleranceAt(z) < vt.ToleranceAt(z+1) {
			t.Errorf("Expected tolerance at %d (%g) >= tolerance at %d (%g)", z, vt.ToleranceAt(z), z+1, vt.ToleranceAt(z+1))
		}
	}
	if vt.ToleranceAt(16) != 0 {
		t.Errorf("Expected no simplification at max zoom, got %g", vt.ToleranceAt(16))
	}
}

func TestSmallRingsDroppedBelowMaxZoom(t *testing.T) {
	d := 1e-5
	vt := New([]*ProjectedFeature{polygonFeature(
		orb.Point{0.5001, 0.5001},
		orb.Point{0.5001 + d, 0.5001},
		orb.Point{0.5001, 0.5001 + d},
		orb.Point{0.5001, 0.5001},
	)}, testOptions(10))

	if tile := vt.GetTile(0, 0, 0); tile != nil {
		t.Errorf("Expected tiny polygon to be dropped at zoom 0, got %d features", len(tile.Features))
	}

	tile := vt.GetTile(10, 512, 512)
	if tile == nil {
		t.Fatal("Expected polygon to survive at max zoom")
	}
	if len(tile.Features[0].Rings[0]) != 4 {
		t.Errorf("Expected 4 ring points, got %d", len(tile.Features[0].Rings[0]))
	}
}

func TestPolygonCoveringTileIsClippedToBuffer(t *testing.T) {
	vt := New([]*ProjectedFeature{polygonFeature(
		orb.Point{0.1, 0.1},
		orb.Point{0.9, 0.1},
		orb.Point{0.9, 0.9},
		orb.Point{0.1, 0.9},
		orb.Point{0.1, 0.1},
	)}, testOptions(6))

	tile := vt.GetTile(2, 1, 1)
	if tile == nil {
		t.Fatal("Expected tile at 2/1/1")
	}

	ring := tile.Features[0].Rings[0]
	if len(ring) < 4 {
		t.Fatalf("Expected closed ring, got %v", ring)
	}
	if ring[0] != ring[len(ring)-1] {
		t.Errorf("Expected closed ring, got %v", ring)
	}
	for _, p := range ring {
		if p.X < -64 || p.X > 4160 || p.Y < -64 || p.Y > 4160 {
			t.Errorf("Expected point within buffered extent, got %v", p)
		}
	}
}

func TestEagerSplitRespectsIndexLimits(t *testing.T) {
	opts := testOptions(10)
	opts.IndexMaxZoom = 2
	opts.IndexMaxPoints = 1

	vt := New([]*ProjectedFeature{lineFeature(orb.Point{0.1, 0.1}, orb.Point{0.9, 0.9})}, opts)

	if vt.TileCount() <= 1 {
		t.Errorf("Expected eager split below the root, got %d tiles", vt.TileCount())
	}
	if vt.tiles[tileID(3, 1, 1)] != nil {
		t.Error("Expected no eager tiles below IndexMaxZoom")
	}
}

func TestFeatureTypeString(t *testing.T) {
	if LineString.String() != "LineString" || Polygon.String() != "Polygon" || Point.String() != "Point" {
		t.Error("Expected readable feature type names")
	}
	if FeatureType(9).String() != "Unknown" {
		t.Errorf("Expected Unknown, got %s", FeatureType(9).String())
	}
}
