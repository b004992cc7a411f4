// internal/tile/types.go - Tile rendering types
package tile

import (
	"fmt"
	"time"

	"github.com/valpere/annotation_tiler/pkg/annotation"
)

// Coordinate represents a tile coordinate in the tile pyramid
type Coordinate struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// TileRange represents a rectangle of tiles at one zoom level
type TileRange struct {
	Z    int `json:"z"`
	MinX int `json:"min_x"`
	MaxX int `json:"max_x"`
	MinY int `json:"min_y"`
	MaxY int `json:"max_y"`
}

// ProcessedTile is a rendered annotation tile
type ProcessedTile struct {
	Coordinate *Coordinate      `json:"coordinate"`
	Tile       *annotation.Tile `json:"-"`
	Metadata   *Metadata        `json:"metadata"`
	Error      error            `json:"error,omitempty"`
}

// Metadata contains metadata about the rendered tile
type Metadata struct {
	Layers       []string      `json:"layers"`
	FeatureCount int           `json:"feature_count"`
	RenderTime   time.Duration `json:"render_time"`
	Version      int           `json:"version"`
	Extent       int           `json:"extent"`
	Empty        bool          `json:"empty"`
}

// NewCoordinate creates a new tile coordinate
func NewCoordinate(z, x, y int) *Coordinate {
	return &Coordinate{
		Z: z,
		X: x,
		Y: y,
	}
}

// String returns a string representation of the tile coordinate
func (c *Coordinate) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// ID converts the coordinate into an annotation tile id. The coordinate
// must be valid.
func (c *Coordinate) ID() annotation.TileID {
	return annotation.TileID{Z: uint8(c.Z), X: uint32(c.X), Y: uint32(c.Y)}
}

// NewTileRange creates a new tile range
func NewTileRange(z, minX, maxX, minY, maxY int) *TileRange {
	return &TileRange{
		Z:    z,
		MinX: minX,
		MaxX: maxX,
		MinY: minY,
		MaxY: maxY,
	}
}

// Count returns the total number of tiles in the range
func (tr *TileRange) Count() int64 {
	if tr.MaxX < tr.MinX || tr.MaxY < tr.MinY {
		return 0
	}
	return int64(tr.MaxX-tr.MinX+1) * int64(tr.MaxY-tr.MinY+1)
}

// Coordinates lists the tiles of the range in row-major order
func (tr *TileRange) Coordinates() []*Coordinate {
	coords := make([]*Coordinate, 0, tr.Count())
	for y := tr.MinY; y <= tr.MaxY; y++ {
		for x := tr.MinX; x <= tr.MaxX; x++ {
			coords = append(coords, NewCoordinate(tr.Z, x, y))
		}
	}
	return coords
}

// String returns a string representation of the range
func (tr *TileRange) String() string {
	return fmt.Sprintf("%d/%d-%d/%d-%d", tr.Z, tr.MinX, tr.MaxX, tr.MinY, tr.MaxY)
}
