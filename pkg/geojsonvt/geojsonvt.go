// pkg/geojsonvt/geojsonvt.go - Adaptive vector tile index
//
// Package geojsonvt slices normalized vector geometry into a zoom/x/y tile
// pyramid. Low zoom tiles are built eagerly when the index is constructed;
// deeper tiles are produced on demand by drilling down from the closest
// ancestor that still holds unsplit geometry. Every produced tile is cached.
package geojsonvt

import (
	"sync"

	"github.com/paulmach/orb"
)

// Options configures the tile index
type Options struct {
	MaxZoom        uint8   // deepest zoom the index will produce
	IndexMaxZoom   uint8   // deepest zoom split eagerly at construction
	IndexMaxPoints int     // tiles holding fewer points are not split eagerly
	Tolerance      float64 // simplification tolerance in tile units
	Extent         uint32  // tile coordinate extent
	Buffer         uint32  // clip buffer beyond each tile edge, in tile units
}

// DefaultOptions returns the index defaults
func DefaultOptions() Options {
	return Options{
		MaxZoom:        14,
		IndexMaxZoom:   5,
		IndexMaxPoints: 100000,
		Tolerance:      3,
		Extent:         4096,
		Buffer:         64,
	}
}

// GeoJSONVT is a tile index over a fixed set of projected features. It is
// safe for concurrent use.
type GeoJSONVT struct {
	options Options
	mu      sync.RWMutex
	tiles   map[uint64]*internalTile
}

type tileTarget struct {
	z    uint8
	x, y uint32
}

// New builds a tile index over the features
func New(features []*ProjectedFeature, options Options) *GeoJSONVT {
	if options.Extent == 0 {
		options.Extent = DefaultOptions().Extent
	}
	if options.IndexMaxZoom > options.MaxZoom {
		options.IndexMaxZoom = options.MaxZoom
	}

	vt := &GeoJSONVT{
		options: options,
		tiles:   make(map[uint64]*internalTile),
	}
	vt.splitTile(features, 0, 0, 0, nil)

	return vt
}

// Options returns the options the index was built with
func (vt *GeoJSONVT) Options() Options {
	return vt.options
}

// ToleranceAt returns the normalized simplification tolerance applied to
// tiles at zoom z. Tiles at the maximum zoom are not simplified.
func (vt *GeoJSONVT) ToleranceAt(z uint8) float64 {
	if z >= vt.options.MaxZoom {
		return 0
	}
	return vt.options.Tolerance / (float64(uint64(1)<<z) * float64(vt.options.Extent))
}

// TileCount returns the number of tiles currently cached in the index
func (vt *GeoJSONVT) TileCount() int {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return len(vt.tiles)
}

// GetTile returns the tile at z/x/y, or nil when the coordinate is outside
// the pyramid or no geometry reaches the tile.
func (vt *GeoJSONVT) GetTile(z uint8, x, y uint32) *Tile {
	if z > vt.options.MaxZoom {
		return nil
	}
	z2 := uint64(1) << z
	if uint64(x) >= z2 || uint64(y) >= z2 {
		return nil
	}

	id := tileID(z, x, y)

	vt.mu.RLock()
	t, ok := vt.tiles[id]
	vt.mu.RUnlock()
	if ok {
		return t.visible()
	}

	vt.mu.Lock()
	defer vt.mu.Unlock()

	if t, ok := vt.tiles[id]; ok {
		return t.visible()
	}

	z0, x0, y0 := z, x, y
	var parent *internalTile
	for parent == nil && z0 > 0 {
		z0--
		x0 >>= 1
		y0 >>= 1
		parent = vt.tiles[tileID(z0, x0, y0)]
	}

	if parent == nil || parent.source == nil {
		return nil
	}

	vt.splitTile(parent.source, z0, x0, y0, &tileTarget{z: z, x: x, y: y})

	if t, ok := vt.tiles[id]; ok {
		return t.visible()
	}
	return nil
}

// splitTile creates the tile at z/x/y and recursively its children. Without
// a target it stops at IndexMaxZoom or when a tile is small enough; with a
// target it only descends along the path to the target tile.
// Callers must hold the write lock.
func (vt *GeoJSONVT) splitTile(features []*ProjectedFeature, z uint8, x, y uint32, target *tileTarget) {
	type item struct {
		features []*ProjectedFeature
		z        uint8
		x, y     uint32
	}

	o := vt.options
	stack := []item{{features: features, z: z, x: x, y: y}}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := tileID(it.z, it.x, it.y)
		t, ok := vt.tiles[id]
		if !ok {
			t = newInternalTile(it.features, it.z, it.x, it.y, vt.ToleranceAt(it.z), o.Extent)
			vt.tiles[id] = t
		}
		t.source = it.features

		if it.z >= o.MaxZoom {
			continue
		}

		if target == nil {
			if it.z == o.IndexMaxZoom || t.numPoints <= o.IndexMaxPoints {
				continue
			}
		} else {
			if it.z == target.z {
				continue
			}
			m := target.z - it.z
			if it.x != target.x>>m || it.y != target.y>>m {
				continue
			}
		}

		// the tile is being split, its children now own the geometry
		t.source = nil

		if len(it.features) == 0 {
			continue
		}

		cz := it.z + 1
		for i := uint32(0); i < 4; i++ {
			cx := it.x*2 + i&1
			cy := it.y*2 + i>>1
			clipped := clipFeatures(it.features, vt.clipBound(cz, cx, cy))
			if len(clipped) == 0 {
				continue
			}
			stack = append(stack, item{features: clipped, z: cz, x: cx, y: cy})
		}
	}
}

// clipBound returns the normalized bound of z/x/y expanded by the buffer
func (vt *GeoJSONVT) clipBound(z uint8, x, y uint32) orb.Bound {
	k := float64(vt.options.Buffer) / float64(vt.options.Extent)
	z2 := float64(uint64(1) << z)
	return orb.Bound{
		Min: orb.Point{(float64(x) - k) / z2, (float64(y) - k) / z2},
		Max: orb.Point{(float64(x) + 1 + k) / z2, (float64(y) + 1 + k) / z2},
	}
}

func (t *internalTile) visible() *Tile {
	if t.result == nil || len(t.result.Features) == 0 {
		return nil
	}
	return t.result
}
