// pkg/mvt/encoder.go - Mapbox Vector Tile encoding implementation
package mvt

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"

	"github.com/valpere/annotation_tiler/pkg/annotation"
)

// Version is the vector tile specification version written by Encode
const Version = 2

// Layers converts a tile into vector tile layers in tile coordinates, one
// layer per tile layer, ordered by name. Features without geometry are
// skipped.
func Layers(tile *annotation.Tile) mvt.Layers {
	tileLayers := tile.Layers()
	layers := make(mvt.Layers, 0, len(tileLayers))

	for _, l := range tileLayers {
		features := l.Features()
		layer := &mvt.Layer{
			Name:     l.Name(),
			Version:  Version,
			Extent:   annotation.Extent,
			Features: make([]*geojson.Feature, 0, len(features)),
		}

		for _, f := range features {
			g := featureGeometry(f)
			if g == nil {
				continue
			}
			feature := geojson.NewFeature(g)
			for k, v := range f.Properties() {
				if v == nil {
					continue
				}
				feature.Properties[k] = tagValue(v)
			}
			layer.Features = append(layer.Features, feature)
		}

		layers = append(layers, layer)
	}

	return layers
}

// Encode serializes a tile into Mapbox Vector Tile protobuf data
func Encode(tile *annotation.Tile) ([]byte, error) {
	data, err := mvt.Marshal(Layers(tile))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MVT data: %w", err)
	}
	return data, nil
}

// EncodeGzipped serializes a tile into gzip compressed protobuf data
func EncodeGzipped(tile *annotation.Tile) ([]byte, error) {
	data, err := mvt.MarshalGzipped(Layers(tile))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gzipped MVT data: %w", err)
	}
	return data, nil
}

// tagValue maps a property onto a type the vector tile format can hold.
// Composite values are stored as their JSON text.
func tagValue(v interface{}) interface{} {
	switch v.(type) {
	case string, bool, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
