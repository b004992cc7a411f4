// pkg/mvt/decoder.go - Mapbox Vector Tile decoding implementation
package mvt

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb/encoding/mvt"

	"github.com/valpere/annotation_tiler/pkg/annotation"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Decode parses protobuf vector tile data, plain or gzip compressed, into a
// tile. Point features have no tile representation and are skipped.
func Decode(data []byte) (*annotation.Tile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty tile data")
	}

	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(data, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal MVT data: %w", err)
	}

	tile := annotation.NewTile()
	for _, layer := range layers {
		features := make([]*annotation.Feature, 0, len(layer.Features))

		for _, f := range layer.Features {
			if f.Geometry == nil {
				continue
			}

			t, rings := tileRings(f.Geometry)
			if t == annotation.FeatureTypeUnknown {
				slog.Debug("skipping feature without tile representation",
					"layer", layer.Name, "type", f.Geometry.GeoJSONType())
				continue
			}
			features = append(features, annotation.NewFeature(t, rings, f.Properties))
		}

		tile.AddFeatures(layer.Name, features)
	}

	return tile, nil
}
