// pkg/geojsonvt/types.go - Projected and tile-local feature types
package geojsonvt

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// FeatureType is the low-level feature tag used inside the index
type FeatureType uint8

const (
	Point FeatureType = iota + 1
	LineString
	Polygon
)

// String returns a readable name for the feature type
func (t FeatureType) String() string {
	switch t {
	case Point:
		return "Point"
	case LineString:
		return "LineString"
	case Polygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

// ProjectedRing is a ring of normalized [0,1] coordinates. Size is the ring
// length for line strings and the absolute area for polygon rings.
type ProjectedRing struct {
	Points orb.LineString
	Size   float64
}

// ProjectedFeature is one logical shape in normalized space
type ProjectedFeature struct {
	Type  FeatureType
	Rings []ProjectedRing
	Bound orb.Bound
	Tags  map[string]interface{}
}

// TilePoint is an integer tile-local coordinate
type TilePoint struct {
	X, Y int16
}

// TileRing is an ordered sequence of tile-local coordinates
type TileRing []TilePoint

// TileFeature is a feature transformed into tile-local coordinates
type TileFeature struct {
	Type  FeatureType
	Rings []TileRing
	Tags  map[string]interface{}
}

// Tile is the result of a tile query. Tiles returned by GetTile are shared
// with the index cache and must be treated as read-only.
type Tile struct {
	Z             uint8
	X, Y          uint32
	Features      []TileFeature
	NumPoints     int
	NumSimplified int
}

// NewRing builds a projected ring and computes its size
func NewRing(points orb.LineString, t FeatureType) ProjectedRing {
	ring := ProjectedRing{Points: points}
	if t == Polygon {
		ring.Size = math.Abs(planar.Area(orb.Ring(points)))
	} else {
		ring.Size = planar.Length(points)
	}
	return ring
}

// NewFeature builds a projected feature and computes its bound
func NewFeature(t FeatureType, rings []ProjectedRing, tags map[string]interface{}) *ProjectedFeature {
	f := &ProjectedFeature{
		Type:  t,
		Rings: rings,
		Tags:  tags,
	}
	f.Bound = featureBound(rings)
	return f
}

// NumPoints returns the number of coordinates held by the feature
func (f *ProjectedFeature) NumPoints() int {
	count := 0
	for _, r := range f.Rings {
		count += len(r.Points)
	}
	return count
}

func featureBound(rings []ProjectedRing) orb.Bound {
	var bound orb.Bound
	first := true
	for _, r := range rings {
		if len(r.Points) == 0 {
			continue
		}
		if first {
			bound = r.Points.Bound()
			first = false
			continue
		}
		bound = bound.Union(r.Points.Bound())
	}
	return bound
}
