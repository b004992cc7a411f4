// pkg/annotation/source_test.go - Unit tests for the annotation source
package annotation

import (
	"errors"
	"testing"

	"github.com/valpere/annotation_tiler/pkg/geometry"
)

func TestSourceAdd(t *testing.T) {
	src := NewSource()

	if err := src.Add(NewShapeAnnotation(1, geometry.LineString{{0, 0}, {1, 1}})); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		shape *ShapeAnnotation
	}{
		{"duplicate id", NewShapeAnnotation(1, geometry.LineString{{2, 2}, {3, 3}})},
		{"point geometry", NewShapeAnnotation(2, geometry.Point{0, 0})},
		{"nil geometry", NewShapeAnnotation(3, nil)},
		{"nil annotation", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := src.Add(tt.shape); err == nil {
				t.Error("Expected error")
			}
		})
	}

	err := src.Add(NewShapeAnnotation(4, geometry.MultiPoint{{0, 0}}))
	if !errors.Is(err, ErrUnsupportedGeometryKind) {
		t.Errorf("Expected ErrUnsupportedGeometryKind, got %v", err)
	}

	if src.Len() != 1 {
		t.Errorf("Expected 1 annotation, got %d", src.Len())
	}
}

func TestSourceGetRemove(t *testing.T) {
	src := NewSource()
	for _, id := range []ID{3, 1, 2} {
		if err := src.Add(NewShapeAnnotation(id, geometry.LineString{{0, 0}, {1, 1}})); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	ids := src.IDs()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("Expected sorted ids [1 2 3], got %v", ids)
	}

	if s, ok := src.Get(2); !ok || s.ID() != 2 {
		t.Error("Expected to find annotation 2")
	}

	if !src.Remove(2) {
		t.Error("Expected annotation 2 to be removed")
	}
	if src.Remove(2) {
		t.Error("Expected second removal to fail")
	}
	if _, ok := src.Get(2); ok {
		t.Error("Expected annotation 2 to be gone")
	}
	if len(src.Query(TileID{Z: 0, X: 0, Y: 0})) != 2 {
		t.Error("Expected removed annotation to leave the spatial index")
	}
}

func TestSourceUpdateTile(t *testing.T) {
	src := NewSource()

	near := NewShapeAnnotation(1, geometry.LineString{{0, 0}, {10, 10}})
	other := NewShapeAnnotation(2, geometry.Polygon{{{1, 1}, {9, 1}, {9, 9}, {1, 9}, {1, 1}}})
	far := NewShapeAnnotation(3, geometry.LineString{{-120, -40}, {-110, -30}})

	for _, s := range []*ShapeAnnotation{near, other, far} {
		if err := src.Add(s); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	tile := NewTile()
	if err := src.UpdateTile(TileID{Z: 4, X: 8, Y: 7}, tile); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	names := tile.LayerNames()
	if len(names) != 2 || names[0] != "annotations.shape.1" || names[1] != "annotations.shape.2" {
		t.Errorf("Expected layers of annotations 1 and 2, got %v", names)
	}
	if far.Built() {
		t.Error("Expected annotation outside the tile not to be tiled")
	}
}

func TestSourceBound(t *testing.T) {
	src := NewSource()
	if _, ok := src.Bound(); ok {
		t.Error("Expected no bound for an empty source")
	}

	src.Add(NewShapeAnnotation(1, geometry.LineString{{-10, 0}, {0, 10}}))
	src.Add(NewShapeAnnotation(2, geometry.LineString{{0, -10}, {10, 0}}))

	bound, ok := src.Bound()
	if !ok {
		t.Fatal("Expected bound")
	}
	if bound.Min[0] >= 0.5 || bound.Max[0] <= 0.5 || bound.Min[1] >= 0.5 || bound.Max[1] <= 0.5 {
		t.Errorf("Expected bound around the origin, got %v", bound)
	}
}

func TestTileBound(t *testing.T) {
	b := TileBound(TileID{Z: 0, X: 0, Y: 0})
	k := float64(Buffer) / float64(Extent)

	if b.Min[0] != -k || b.Max[0] != 1+k {
		t.Errorf("Expected buffered root bound, got %v", b)
	}
}
