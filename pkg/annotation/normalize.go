// pkg/annotation/normalize.go - Geometry normalization into projected features
package annotation

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/valpere/annotation_tiler/pkg/geojsonvt"
	"github.com/valpere/annotation_tiler/pkg/geometry"
)

// Renderer contract. These values are assumed by every consumer decoding
// tile-local coordinates and are not configurable.
const (
	Extent        = 4096
	Buffer        = 255
	BaseTolerance = 4.0
)

const (
	// LatitudeMax is the largest latitude the mercator projection supports
	LatitudeMax = 85.0511

	DefaultMaxZoom = 16
	MaxZoomLimit   = 24
)

// Tolerance returns the normalized simplification tolerance for an
// annotation tiled down to maxZoom
func Tolerance(maxZoom uint8) float64 {
	return BaseTolerance / (float64(uint64(1)<<maxZoom) * Extent)
}

// WrapLongitude wraps a longitude into [-180, 180). Non-finite values become 0.
func WrapLongitude(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0
	}
	if lon >= -180 && lon < 180 {
		return lon
	}

	w := math.Mod(lon+180, 360)
	if w < 0 {
		w += 360
	}
	w -= 180
	if w >= 180 {
		w = -180
	}
	return w
}

// ClampLatitude clamps a latitude into [-LatitudeMax, LatitudeMax]. NaN
// becomes 0.
func ClampLatitude(lat float64) float64 {
	if math.IsNaN(lat) {
		return 0
	}
	return math.Max(-LatitudeMax, math.Min(LatitudeMax, lat))
}

// Normalize projects a line or polygon geometry into a single feature of
// normalized coordinates, simplified at tolerance. Multi-part geometries
// produce one feature with several rings. Only the outer ring of each
// polygon is kept.
func Normalize(g geometry.Geometry, tolerance float64) (*geojsonvt.ProjectedFeature, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil geometry", ErrUnsupportedGeometryKind)
	}

	switch v := g.(type) {
	case geometry.Point, geometry.MultiPoint:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometryKind, g.Kind())

	case geometry.LineString:
		return normalizeLines([]orb.LineString{orb.LineString(v)}, tolerance), nil

	case geometry.MultiLineString:
		return normalizeLines([]orb.LineString(v), tolerance), nil

	case geometry.Polygon:
		return normalizePolygons([]orb.Polygon{orb.Polygon(v)}, tolerance), nil

	case geometry.MultiPolygon:
		return normalizePolygons([]orb.Polygon(v), tolerance), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometryKind, g.Kind())
	}
}

func normalizeLines(lines []orb.LineString, tolerance float64) *geojsonvt.ProjectedFeature {
	rings := make([]geojsonvt.ProjectedRing, 0, len(lines))
	for _, ls := range lines {
		ring := geojsonvt.ProjectRing(sanitize(ls), geojsonvt.LineString, tolerance)
		if len(ring.Points) < 2 {
			continue
		}
		rings = append(rings, ring)
	}
	return geojsonvt.NewFeature(geojsonvt.LineString, rings, nil)
}

func normalizePolygons(polygons []orb.Polygon, tolerance float64) *geojsonvt.ProjectedFeature {
	rings := make([]geojsonvt.ProjectedRing, 0, len(polygons))
	for _, p := range polygons {
		// no holes for now
		if len(p) == 0 {
			continue
		}

		points := closeRing(sanitize(p[0]))
		ring := geojsonvt.ProjectRing(points, geojsonvt.Polygon, tolerance)
		if len(ring.Points) < 4 {
			continue
		}
		rings = append(rings, ring)
	}
	return geojsonvt.NewFeature(geojsonvt.Polygon, rings, nil)
}

// sanitize returns a wrapped and clamped copy of the points
func sanitize(points []orb.Point) []orb.Point {
	out := make([]orb.Point, len(points))
	for i, p := range points {
		out[i] = orb.Point{WrapLongitude(p[0]), ClampLatitude(p[1])}
	}
	return out
}

// closeRing appends the first point when the ring is open. Points are
// compared exactly.
func closeRing(points []orb.Point) []orb.Point {
	if len(points) == 0 {
		return points
	}
	first, last := points[0], points[len(points)-1]
	if first[0] != last[0] || first[1] != last[1] {
		points = append(points, first)
	}
	return points
}

// projectedBound returns the normalized bound of the geometry after wrapping
// and clamping, without simplifying it
func projectedBound(g geometry.Geometry) (orb.Bound, bool) {
	var bound orb.Bound
	found := false

	for _, segment := range geometry.Segments(g) {
		for _, p := range segment {
			pt := geojsonvt.Project(orb.Point{WrapLongitude(p[0]), ClampLatitude(p[1])})
			if !found {
				bound = pt.Bound()
				found = true
				continue
			}
			bound = bound.Extend(pt)
		}
	}

	return bound, found
}
