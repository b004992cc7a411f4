// pkg/geojsonvt/tile.go - Per-tile state and transformation
package geojsonvt

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// internalTile is a node of the tile pyramid. source holds the clipped
// normalized geometry until the node has been split into its children;
// result is computed once when the node is created.
type internalTile struct {
	z         uint8
	x, y      uint32
	source    []*ProjectedFeature
	numPoints int
	result    *Tile
}

func newInternalTile(features []*ProjectedFeature, z uint8, x, y uint32, tolerance float64, extent uint32) *internalTile {
	t := &internalTile{
		z:      z,
		x:      x,
		y:      y,
		source: features,
	}
	for _, f := range features {
		t.numPoints += f.NumPoints()
	}
	t.result = t.transform(features, tolerance, extent)
	return t
}

// transform converts the node's geometry into tile-local integer coordinates,
// dropping rings smaller than the tolerance and simplifying the rest.
func (t *internalTile) transform(features []*ProjectedFeature, tolerance float64, extent uint32) *Tile {
	out := &Tile{
		Z:         t.z,
		X:         t.x,
		Y:         t.y,
		NumPoints: t.numPoints,
	}

	z2 := float64(uint64(1) << t.z)
	e := float64(extent)
	sqTolerance := tolerance * tolerance

	var simplifier *simplify.DouglasPeuckerSimplifier
	if tolerance > 0 {
		simplifier = simplify.DouglasPeucker(tolerance)
	}

	for _, f := range features {
		var rings []TileRing

		for _, r := range f.Rings {
			if tolerance > 0 {
				if f.Type == Polygon && r.Size < sqTolerance {
					continue
				}
				if f.Type == LineString && r.Size < tolerance {
					continue
				}
			}

			points := r.Points
			if simplifier != nil && len(points) > 2 {
				points = simplifier.LineString(points.Clone())
			}

			ring := make(TileRing, 0, len(points))
			for _, p := range points {
				ring = append(ring, transformPoint(p, z2, e, t.x, t.y))
			}

			if f.Type == Polygon && len(ring) < 4 {
				continue
			}
			if f.Type == LineString && len(ring) < 2 {
				continue
			}

			out.NumSimplified += len(ring)
			rings = append(rings, ring)
		}

		if len(rings) == 0 {
			continue
		}

		out.Features = append(out.Features, TileFeature{
			Type:  f.Type,
			Rings: rings,
			Tags:  f.Tags,
		})
	}

	return out
}

func transformPoint(p orb.Point, z2, extent float64, tx, ty uint32) TilePoint {
	return TilePoint{
		X: int16(math.Round(extent * (p[0]*z2 - float64(tx)))),
		Y: int16(math.Round(extent * (p[1]*z2 - float64(ty)))),
	}
}

// tileID packs a tile coordinate into a single map key
func tileID(z uint8, x, y uint32) uint64 {
	return ((uint64(1)<<z)*uint64(y)+uint64(x))*32 + uint64(z)
}
