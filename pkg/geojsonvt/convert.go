// pkg/geojsonvt/convert.go - Projection of lon/lat rings into normalized space
package geojsonvt

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"
)

// Project maps a lon/lat point into normalized spherical mercator space, x
// and y in [0,1] with y growing southwards. maptile.Fraction pins every
// latitude past the southern limit to the last tile row, which is row 0 at
// zoom 0, so southern points are projected by symmetry about the equator.
func Project(ll orb.Point) orb.Point {
	p := maptile.Fraction(orb.Point{ll[0], math.Abs(ll[1])}, 0)
	if ll[1] < 0 {
		p[1] = 1 - p[1]
	}
	p[1] = math.Max(0, math.Min(1, p[1]))
	return p
}

// ProjectRing projects a sequence of lon/lat points and simplifies it with
// the Douglas-Peucker algorithm at the given normalized tolerance.
func ProjectRing(points []orb.Point, t FeatureType, tolerance float64) ProjectedRing {
	projected := make(orb.LineString, 0, len(points))
	for _, p := range points {
		projected = append(projected, Project(p))
	}

	if tolerance > 0 && len(projected) > 2 {
		projected = simplify.DouglasPeucker(tolerance).LineString(projected)
	}

	return NewRing(projected, t)
}
