// pkg/annotation/adapter.go - Conversion of index tile features into tile features
package annotation

import (
	"fmt"

	"github.com/valpere/annotation_tiler/pkg/geojsonvt"
)

// AdaptFeatures converts tile-local index features into tile features in
// order. Polygon features always pass through RepairPolygon; features left
// without rings are dropped. Panics with ErrInternalFeatureTypeViolation on
// a feature type other than LineString or Polygon.
func AdaptFeatures(features []geojsonvt.TileFeature) []*Feature {
	out := make([]*Feature, 0, len(features))
	for _, f := range features {
		if feature := adaptFeature(f); feature != nil {
			out = append(out, feature)
		}
	}
	return out
}

func adaptFeature(f geojsonvt.TileFeature) *Feature {
	t := featureType(f.Type)

	rings := make([]Ring, 0, len(f.Rings))
	for _, r := range f.Rings {
		ring := make(Ring, len(r))
		for i, p := range r {
			ring[i] = Coordinate{X: p.X, Y: p.Y}
		}
		rings = append(rings, ring)
	}

	if t == FeatureTypePolygon {
		rings = RepairPolygon(rings)
	}
	if len(rings) == 0 {
		return nil
	}

	return newFeature(t, rings, f.Tags)
}

func featureType(t geojsonvt.FeatureType) FeatureType {
	switch t {
	case geojsonvt.LineString:
		return FeatureTypeLineString
	case geojsonvt.Polygon:
		return FeatureTypePolygon
	default:
		panic(fmt.Errorf("%w: index emitted %s feature", ErrInternalFeatureTypeViolation, t))
	}
}
