// pkg/annotation/winding.go - Polygon ring repair
package annotation

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type classifiedRing struct {
	ring   Ring
	area   int64 // twice the signed area
	depth  int
	parent int
}

// RepairPolygon rebuilds the outer/inner structure of a polygon's rings.
// Consecutive duplicate points are removed, rings are closed, and rings with
// fewer than 4 points or no area are dropped. Each ring is classified by how
// many larger rings contain it: even depth rings are outer rings and get a
// positive signed area, odd depth rings are holes and get a negative one
// (tile space, y growing down). Every outer ring is followed by its holes.
// The input is not modified.
func RepairPolygon(rings []Ring) []Ring {
	var candidates []*classifiedRing
	for _, r := range rings {
		ring := cleanRing(r)
		if len(ring) < 4 {
			continue
		}
		area := signedArea2(ring)
		if area == 0 {
			continue
		}
		candidates = append(candidates, &classifiedRing{ring: ring, area: area, parent: -1})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return abs64(candidates[i].area) > abs64(candidates[j].area)
	})

	for i, c := range candidates {
		for j := i - 1; j >= 0; j-- {
			if ringContains(candidates[j].ring, c.ring) {
				c.depth = candidates[j].depth + 1
				c.parent = j
				break
			}
		}

		hole := c.depth%2 == 1
		if hole == (c.area > 0) {
			c.ring = reverseRing(c.ring)
			c.area = -c.area
		}
	}

	out := make([]Ring, 0, len(candidates))
	for i, c := range candidates {
		if c.depth%2 == 1 {
			continue
		}
		out = append(out, c.ring)
		for _, h := range candidates[i+1:] {
			if h.depth%2 == 1 && candidates[h.parent] == c {
				out = append(out, h.ring)
			}
		}
	}

	return out
}

// cleanRing returns a closed copy of r without consecutive duplicates
func cleanRing(r Ring) Ring {
	out := make(Ring, 0, len(r)+1)
	for _, p := range r {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

// signedArea2 returns twice the signed area of a closed ring. In tile space
// with y growing down, a positive value is a clockwise ring on screen.
func signedArea2(r Ring) int64 {
	var sum int64
	for i := 0; i < len(r)-1; i++ {
		sum += int64(r[i].X)*int64(r[i+1].Y) - int64(r[i+1].X)*int64(r[i].Y)
	}
	return sum
}

// SignedArea returns the signed area of a closed ring in tile units
func SignedArea(r Ring) float64 {
	return float64(signedArea2(r)) / 2
}

func reverseRing(r Ring) Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// ringContains reports whether every vertex of inner lies inside outer.
// Vertices on the boundary of outer are ignored; a ring touching outer only
// along its boundary is not contained.
func ringContains(outer, inner Ring) bool {
	o := toOrbRing(outer)
	found := false
	for _, p := range inner {
		if onBoundary(outer, p) {
			continue
		}
		if !planar.RingContains(o, orb.Point{float64(p.X), float64(p.Y)}) {
			return false
		}
		found = true
	}
	return found
}

func onBoundary(r Ring, p Coordinate) bool {
	for i := 0; i < len(r)-1; i++ {
		if onSegment(r[i], r[i+1], p) {
			return true
		}
	}
	return false
}

func onSegment(a, b, p Coordinate) bool {
	cross := (int64(b.X)-int64(a.X))*(int64(p.Y)-int64(a.Y)) - (int64(b.Y)-int64(a.Y))*(int64(p.X)-int64(a.X))
	if cross != 0 {
		return false
	}
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}

func toOrbRing(r Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = orb.Point{float64(p.X), float64(p.Y)}
	}
	return out
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
