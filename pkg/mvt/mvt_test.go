// pkg/mvt/mvt_test.go - Unit tests for tile encoding and conversion
package mvt

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/valpere/annotation_tiler/pkg/annotation"
)

func testTile() *annotation.Tile {
	tile := annotation.NewTile()
	tile.AddFeatures("annotations.shape.1", []*annotation.Feature{
		annotation.NewFeature(annotation.FeatureTypeLineString,
			[]annotation.Ring{{{X: 2048, Y: 2048}, {X: 4096, Y: 4096}}},
			map[string]interface{}{"name": "route", "width": 2.0}),
	})
	tile.AddFeatures("annotations.shape.2", []*annotation.Feature{
		annotation.NewFeature(annotation.FeatureTypePolygon,
			[]annotation.Ring{{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}, {X: 0, Y: 0}}},
			nil),
	})
	return tile
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	encoders := map[string]func(*annotation.Tile) ([]byte, error){
		"plain":   Encode,
		"gzipped": EncodeGzipped,
	}

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			data, err := encode(testTile())
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			tile, err := Decode(data)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			names := tile.LayerNames()
			if len(names) != 2 || names[0] != "annotations.shape.1" || names[1] != "annotations.shape.2" {
				t.Fatalf("Expected both layers, got %v", names)
			}

			line, _ := tile.Layer("annotations.shape.1")
			f := line.Features()[0]
			if f.Type() != annotation.FeatureTypeLineString {
				t.Errorf("Expected LineString, got %s", f.Type())
			}
			ring := f.Geometry()[0]
			if len(ring) != 2 || ring[0] != (annotation.Coordinate{X: 2048, Y: 2048}) || ring[1] != (annotation.Coordinate{X: 4096, Y: 4096}) {
				t.Errorf("Expected line coordinates to survive, got %v", ring)
			}
			if v, _ := f.Property("name"); v != "route" {
				t.Errorf("Expected name 'route', got %v", v)
			}

			polygon, _ := tile.Layer("annotations.shape.2")
			if polygon.Features()[0].Type() != annotation.FeatureTypePolygon {
				t.Errorf("Expected Polygon, got %s", polygon.Features()[0].Type())
			}
		})
	}
}

func TestDecode_EmptyData(t *testing.T) {
	_, err := Decode([]byte{})
	if err == nil {
		t.Fatal("Expected error for empty data")
	}
	if err.Error() != "empty tile data" {
		t.Errorf("Expected 'empty tile data' error, got %s", err.Error())
	}
}

func TestDecode_InvalidData(t *testing.T) {
	if _, err := Decode([]byte{0x1f, 0x8b, 0x00}); err == nil {
		t.Error("Expected error for truncated gzip data")
	}
}

func TestFeatureGeometryGroupsHoles(t *testing.T) {
	f := annotation.NewFeature(annotation.FeatureTypePolygon, []annotation.Ring{
		{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}, {X: 0, Y: 0}},
		{{X: 20, Y: 20}, {X: 20, Y: 80}, {X: 80, Y: 80}, {X: 80, Y: 20}, {X: 20, Y: 20}},
		{{X: 200, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 100}, {X: 200, Y: 100}, {X: 200, Y: 0}},
	}, nil)

	mp, ok := featureGeometry(f).(orb.MultiPolygon)
	if !ok {
		t.Fatalf("Expected MultiPolygon, got %T", featureGeometry(f))
	}
	if len(mp) != 2 {
		t.Fatalf("Expected 2 polygons, got %d", len(mp))
	}
	if len(mp[0]) != 2 || len(mp[1]) != 1 {
		t.Errorf("Expected hole grouped with the first polygon, got %d and %d rings", len(mp[0]), len(mp[1]))
	}
}

func TestFeatureGeometryLines(t *testing.T) {
	single := annotation.NewFeature(annotation.FeatureTypeLineString, []annotation.Ring{{{X: 0, Y: 0}, {X: 1, Y: 1}}}, nil)
	if _, ok := featureGeometry(single).(orb.LineString); !ok {
		t.Errorf("Expected LineString, got %T", featureGeometry(single))
	}

	multi := annotation.NewFeature(annotation.FeatureTypeLineString, []annotation.Ring{{{X: 0, Y: 0}, {X: 1, Y: 1}}, {{X: 2, Y: 2}, {X: 3, Y: 3}}}, nil)
	if _, ok := featureGeometry(multi).(orb.MultiLineString); !ok {
		t.Errorf("Expected MultiLineString, got %T", featureGeometry(multi))
	}
}

func TestTileRingsSkipsPoints(t *testing.T) {
	typ, rings := tileRings(orb.Point{1, 2})
	if typ != annotation.FeatureTypeUnknown || rings != nil {
		t.Errorf("Expected unknown type for points, got %s", typ)
	}
}

func TestToInt16Clamps(t *testing.T) {
	tests := []struct {
		input    float64
		expected int16
	}{
		{1.4, 1},
		{-1.6, -2},
		{40000, math.MaxInt16},
		{-40000, math.MinInt16},
	}

	for _, tt := range tests {
		if got := toInt16(tt.input); got != tt.expected {
			t.Errorf("toInt16(%v): expected %d, got %d", tt.input, tt.expected, got)
		}
	}
}

func TestTagValue(t *testing.T) {
	if v := tagValue("text"); v != "text" {
		t.Errorf("Expected string to pass through, got %v", v)
	}
	if v := tagValue(3.5); v != 3.5 {
		t.Errorf("Expected float to pass through, got %v", v)
	}
	if v := tagValue([]interface{}{1.0, "a"}); v != `[1,"a"]` {
		t.Errorf("Expected JSON text for composite value, got %v", v)
	}
}

func TestConvertWGS84(t *testing.T) {
	fc, metadata, err := NewConverter().Convert(testTile(), annotation.TileID{Z: 0, X: 0, Y: 0})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if metadata.FeatureCount != 2 || len(metadata.Layers) != 2 {
		t.Errorf("Expected 2 features in 2 layers, got %+v", metadata)
	}
	if metadata.TileID != "0/0/0" {
		t.Errorf("Expected tile id 0/0/0, got %s", metadata.TileID)
	}

	line, ok := fc.Features[0].Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("Expected LineString, got %T", fc.Features[0].Geometry)
	}
	if math.Abs(line[0][0]) > 1e-6 || math.Abs(line[0][1]) > 1e-6 {
		t.Errorf("Expected tile center at 0,0, got %v", line[0])
	}
	if math.Abs(line[1][0]-180) > 1e-6 {
		t.Errorf("Expected tile corner at longitude 180, got %v", line[1])
	}

	if fc.Features[0].Properties[LayerProperty] != "annotations.shape.1" {
		t.Errorf("Expected layer 'annotations.shape.1', got %v", fc.Features[0].Properties[LayerProperty])
	}
}

func TestConvertTileCoordinates(t *testing.T) {
	converter, err := NewConverterWithOptions(&ConversionOptions{CoordinateSystem: CoordSystemTile})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	fc, _, err := converter.Convert(testTile(), annotation.TileID{Z: 3, X: 1, Y: 1})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	line := fc.Features[0].Geometry.(orb.LineString)
	if line[0] != (orb.Point{2048, 2048}) {
		t.Errorf("Expected tile coordinates, got %v", line[0])
	}
}

func TestConvertFilters(t *testing.T) {
	converter, _ := NewConverterWithOptions(&ConversionOptions{
		LayerFilter:      []string{"annotations.shape.1"},
		PropertyFilter:   []string{"name"},
		CoordinateSystem: CoordSystemWGS84,
		IncludeMetadata:  true,
	})

	fc, _, err := converter.Convert(testTile(), annotation.TileID{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(fc.Features) != 1 {
		t.Fatalf("Expected 1 feature after layer filter, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["name"] != "route" {
		t.Error("Expected 'name' property to be included")
	}
	if _, exists := fc.Features[0].Properties["width"]; exists {
		t.Error("Expected 'width' property to be filtered out")
	}
	if _, exists := fc.ExtraMembers["metadata"]; !exists {
		t.Error("Expected metadata member")
	}
}

func TestConvertToGeoJSONString(t *testing.T) {
	s, err := NewConverter().ConvertToGeoJSONString(testTile(), annotation.TileID{}, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if decoded["type"] != "FeatureCollection" {
		t.Errorf("Expected FeatureCollection, got %v", decoded["type"])
	}
}

func TestValidateConversionOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *ConversionOptions
		wantErr bool
	}{
		{"valid wgs84", &ConversionOptions{CoordinateSystem: CoordSystemWGS84}, false},
		{"valid tile", &ConversionOptions{CoordinateSystem: CoordSystemTile}, false},
		{"invalid coordinate system", &ConversionOptions{CoordinateSystem: "invalid"}, true},
		{"nil options", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConversionOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConversionOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
