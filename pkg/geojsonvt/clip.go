// pkg/geojsonvt/clip.go - Buffered clipping of projected features
package geojsonvt

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
)

// clipFeatures clips every feature to the bound and drops the ones that end
// up without rings. Features fully inside the bound are shared, not copied.
func clipFeatures(features []*ProjectedFeature, bound orb.Bound) []*ProjectedFeature {
	var clipped []*ProjectedFeature

	for _, f := range features {
		if !f.Bound.Intersects(bound) {
			continue
		}

		if contains(bound, f.Bound) {
			clipped = append(clipped, f)
			continue
		}

		var rings []ProjectedRing
		switch f.Type {
		case Polygon:
			rings = clipPolygonRings(f.Rings, bound)
		case LineString:
			rings = clipLineRings(f.Rings, bound)
		}

		if len(rings) == 0 {
			continue
		}
		clipped = append(clipped, NewFeature(f.Type, rings, f.Tags))
	}

	return clipped
}

func clipLineRings(rings []ProjectedRing, bound orb.Bound) []ProjectedRing {
	var out []ProjectedRing
	for _, r := range rings {
		parts := clip.LineString(bound, r.Points.Clone())
		for _, part := range parts {
			if len(part) < 2 {
				continue
			}
			out = append(out, NewRing(part, LineString))
		}
	}
	return out
}

func clipPolygonRings(rings []ProjectedRing, bound orb.Bound) []ProjectedRing {
	var out []ProjectedRing
	for _, r := range rings {
		ring := clip.Ring(bound, orb.Ring(r.Points.Clone()))
		if len(ring) == 0 {
			continue
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		if len(ring) < 4 {
			continue
		}
		out = append(out, NewRing(orb.LineString(ring), Polygon))
	}
	return out
}

func contains(outer, inner orb.Bound) bool {
	return inner.Min[0] >= outer.Min[0] && inner.Max[0] <= outer.Max[0] &&
		inner.Min[1] >= outer.Min[1] && inner.Max[1] <= outer.Max[1]
}
