// pkg/mvt/geometry.go - Conversion between tile rings and orb geometries
package mvt

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/valpere/annotation_tiler/pkg/annotation"
)

// featureGeometry converts a tile feature into an orb geometry in tile
// coordinates. Polygon rings with positive area start a new polygon; the
// rings following it are its holes.
func featureGeometry(f *annotation.Feature) orb.Geometry {
	rings := f.Geometry()
	if len(rings) == 0 {
		return nil
	}

	switch f.Type() {
	case annotation.FeatureTypeLineString:
		lines := make(orb.MultiLineString, 0, len(rings))
		for _, r := range rings {
			lines = append(lines, toLineString(r))
		}
		if len(lines) == 1 {
			return lines[0]
		}
		return lines

	case annotation.FeatureTypePolygon:
		var polygons orb.MultiPolygon
		for _, r := range rings {
			ring := orb.Ring(toLineString(r))
			if annotation.SignedArea(r) > 0 || len(polygons) == 0 {
				polygons = append(polygons, orb.Polygon{ring})
				continue
			}
			polygons[len(polygons)-1] = append(polygons[len(polygons)-1], ring)
		}
		if len(polygons) == 1 {
			return polygons[0]
		}
		return polygons

	default:
		return nil
	}
}

// tileRings converts an orb geometry in tile coordinates into a feature type
// and rings. Point geometries are reported as unknown.
func tileRings(g orb.Geometry) (annotation.FeatureType, []annotation.Ring) {
	switch v := g.(type) {
	case orb.LineString:
		return annotation.FeatureTypeLineString, []annotation.Ring{fromPoints(v)}
	case orb.MultiLineString:
		rings := make([]annotation.Ring, 0, len(v))
		for _, ls := range v {
			rings = append(rings, fromPoints(ls))
		}
		return annotation.FeatureTypeLineString, rings
	case orb.Ring:
		return annotation.FeatureTypePolygon, []annotation.Ring{fromPoints(v)}
	case orb.Polygon:
		rings := make([]annotation.Ring, 0, len(v))
		for _, r := range v {
			rings = append(rings, fromPoints(r))
		}
		return annotation.FeatureTypePolygon, rings
	case orb.MultiPolygon:
		var rings []annotation.Ring
		for _, p := range v {
			for _, r := range p {
				rings = append(rings, fromPoints(r))
			}
		}
		return annotation.FeatureTypePolygon, rings
	default:
		return annotation.FeatureTypeUnknown, nil
	}
}

func toLineString(r annotation.Ring) orb.LineString {
	ls := make(orb.LineString, len(r))
	for i, c := range r {
		ls[i] = orb.Point{float64(c.X), float64(c.Y)}
	}
	return ls
}

func fromPoints(points []orb.Point) annotation.Ring {
	ring := make(annotation.Ring, len(points))
	for i, p := range points {
		ring[i] = annotation.Coordinate{X: toInt16(p[0]), Y: toInt16(p[1])}
	}
	return ring
}

func toInt16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
