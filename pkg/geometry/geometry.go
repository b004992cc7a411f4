// pkg/geometry/geometry.go - Annotation geometry types
package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Kind identifies the shape of an annotation geometry
type Kind uint8

const (
	KindPoint Kind = iota + 1
	KindMultiPoint
	KindLineString
	KindMultiLineString
	KindPolygon
	KindMultiPolygon
)

// String returns the GeoJSON name of the kind
func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindMultiPoint:
		return "MultiPoint"
	case KindLineString:
		return "LineString"
	case KindMultiLineString:
		return "MultiLineString"
	case KindPolygon:
		return "Polygon"
	case KindMultiPolygon:
		return "MultiPolygon"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// IsPoint reports whether the kind is one of the point kinds
func (k Kind) IsPoint() bool {
	return k == KindPoint || k == KindMultiPoint
}

// Geometry is a longitude/latitude annotation geometry. The set of
// implementations is closed: Point, MultiPoint, LineString, MultiLineString,
// Polygon and MultiPolygon.
type Geometry interface {
	Kind() Kind
	Bound() orb.Bound
	Orb() orb.Geometry
	isGeometry()
}

// Point is a single position
type Point orb.Point

// MultiPoint is a set of positions
type MultiPoint orb.MultiPoint

// LineString is an open sequence of positions
type LineString orb.LineString

// MultiLineString is a set of line strings
type MultiLineString orb.MultiLineString

// Polygon is a sequence of rings, the first one being the outer boundary
type Polygon orb.Polygon

// MultiPolygon is a set of polygons
type MultiPolygon orb.MultiPolygon

func (Point) Kind() Kind           { return KindPoint }
func (MultiPoint) Kind() Kind      { return KindMultiPoint }
func (LineString) Kind() Kind      { return KindLineString }
func (MultiLineString) Kind() Kind { return KindMultiLineString }
func (Polygon) Kind() Kind         { return KindPolygon }
func (MultiPolygon) Kind() Kind    { return KindMultiPolygon }

func (g Point) Orb() orb.Geometry           { return orb.Point(g) }
func (g MultiPoint) Orb() orb.Geometry      { return orb.MultiPoint(g) }
func (g LineString) Orb() orb.Geometry      { return orb.LineString(g) }
func (g MultiLineString) Orb() orb.Geometry { return orb.MultiLineString(g) }
func (g Polygon) Orb() orb.Geometry         { return orb.Polygon(g) }
func (g MultiPolygon) Orb() orb.Geometry    { return orb.MultiPolygon(g) }

func (g Point) Bound() orb.Bound           { return orb.Point(g).Bound() }
func (g MultiPoint) Bound() orb.Bound      { return orb.MultiPoint(g).Bound() }
func (g LineString) Bound() orb.Bound      { return orb.LineString(g).Bound() }
func (g MultiLineString) Bound() orb.Bound { return orb.MultiLineString(g).Bound() }
func (g Polygon) Bound() orb.Bound         { return orb.Polygon(g).Bound() }
func (g MultiPolygon) Bound() orb.Bound    { return orb.MultiPolygon(g).Bound() }

func (Point) isGeometry()           {}
func (MultiPoint) isGeometry()      {}
func (LineString) isGeometry()      {}
func (MultiLineString) isGeometry() {}
func (Polygon) isGeometry()         {}
func (MultiPolygon) isGeometry()    {}

// FromOrb converts an orb geometry into an annotation geometry. The input is
// deep-copied so later changes to it do not leak into the annotation.
func FromOrb(g orb.Geometry) (Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}

	switch v := orb.Clone(g).(type) {
	case orb.Point:
		return Point(v), nil
	case orb.MultiPoint:
		return MultiPoint(v), nil
	case orb.LineString:
		return LineString(v), nil
	case orb.MultiLineString:
		return MultiLineString(v), nil
	case orb.Ring:
		return Polygon(orb.Polygon{v}), nil
	case orb.Polygon:
		return Polygon(v), nil
	case orb.MultiPolygon:
		return MultiPolygon(v), nil
	default:
		return nil, fmt.Errorf("unsupported geometry type: %T", g)
	}
}

// Clone returns a deep copy of g. A nil geometry stays nil.
func Clone(g Geometry) Geometry {
	if g == nil {
		return nil
	}
	c, err := FromOrb(g.Orb())
	if err != nil {
		return g
	}
	return c
}

// Segments returns the coordinate sequences of the geometry: one per line
// string, one per polygon ring. Point kinds return one sequence holding all
// positions.
func Segments(g Geometry) [][]orb.Point {
	switch v := g.(type) {
	case Point:
		return [][]orb.Point{{orb.Point(v)}}
	case MultiPoint:
		return [][]orb.Point{[]orb.Point(v)}
	case LineString:
		return [][]orb.Point{[]orb.Point(v)}
	case MultiLineString:
		segments := make([][]orb.Point, 0, len(v))
		for _, ls := range v {
			segments = append(segments, []orb.Point(ls))
		}
		return segments
	case Polygon:
		segments := make([][]orb.Point, 0, len(v))
		for _, r := range v {
			segments = append(segments, []orb.Point(r))
		}
		return segments
	case MultiPolygon:
		var segments [][]orb.Point
		for _, p := range v {
			for _, r := range p {
				segments = append(segments, []orb.Point(r))
			}
		}
		return segments
	default:
		return nil
	}
}

// PointCount returns the number of positions in the geometry
func PointCount(g Geometry) int {
	count := 0
	for _, segment := range Segments(g) {
		count += len(segment)
	}
	return count
}
