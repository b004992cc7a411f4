// internal/tile/path.go - Tile path and range helpers
package tile

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

var pathMatcher = regexp.MustCompile(`^/?(?:tiles/)?([0-9]+)/([0-9]+)/([0-9]+)\.([a-z]+)$`)

// ParseTilePath parses paths of the form [/tiles]/z/x/y.ext and returns the
// coordinate and the lower-cased extension
func ParseTilePath(path string) (*Coordinate, string, error) {
	matches := pathMatcher.FindStringSubmatch(strings.ToLower(path))
	if len(matches) != 5 {
		return nil, "", errors.New("could not match path")
	}

	var values [3]int
	for i := range values {
		v, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return nil, "", fmt.Errorf("invalid tile path %q: %w", path, err)
		}
		values[i] = v
	}

	coord := NewCoordinate(values[0], values[1], values[2])
	if err := ValidateCoordinates(coord.Z, coord.X, coord.Y); err != nil {
		return nil, "", err
	}

	return coord, matches[4], nil
}

// ParseCoordinate parses a z/x/y string
func ParseCoordinate(s string) (*Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid tile coordinate %q: expected z/x/y", s)
	}

	var values [3]int
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid tile coordinate %q: %w", s, err)
		}
		values[i] = v
	}

	coord := NewCoordinate(values[0], values[1], values[2])
	if err := ValidateCoordinates(coord.Z, coord.X, coord.Y); err != nil {
		return nil, err
	}
	return coord, nil
}

// RangeForBound returns the tiles at zoom z covering a bound in normalized
// Web Mercator space, where both axes run from 0 to 1
func RangeForBound(bound orb.Bound, z int) *TileRange {
	n := 1 << uint(z)
	clampTile := func(v float64) int {
		i := int(math.Floor(v * float64(n)))
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}

	return NewTileRange(z,
		clampTile(bound.Min[0]), clampTile(bound.Max[0]),
		clampTile(bound.Min[1]), clampTile(bound.Max[1]),
	)
}

// Pyramid returns the covering ranges of bound for every zoom from minZ to
// maxZ inclusive
func Pyramid(bound orb.Bound, minZ, maxZ int) []*TileRange {
	if maxZ < minZ {
		return nil
	}

	ranges := make([]*TileRange, 0, maxZ-minZ+1)
	for z := minZ; z <= maxZ; z++ {
		ranges = append(ranges, RangeForBound(bound, z))
	}
	return ranges
}
