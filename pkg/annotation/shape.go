// pkg/annotation/shape.go - Shape annotation with a lazily built tile index
package annotation

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"

	"github.com/valpere/annotation_tiler/pkg/geojsonvt"
	"github.com/valpere/annotation_tiler/pkg/geometry"
)

// LayerPrefix prefixes the layer name of every shape annotation
const LayerPrefix = "annotations.shape."

// ID identifies an annotation
type ID uint64

// TileID is a tile pyramid coordinate
type TileID struct {
	Z    uint8
	X, Y uint32
}

// String returns the tile coordinate as z/x/y
func (id TileID) String() string {
	return fmt.Sprintf("%d/%d/%d", id.Z, id.X, id.Y)
}

// Option configures a ShapeAnnotation
type Option func(*ShapeAnnotation)

// WithMaxZoom sets the deepest zoom the annotation is tiled to. Values above
// MaxZoomLimit are clamped.
func WithMaxZoom(z uint8) Option {
	return func(s *ShapeAnnotation) {
		if z > MaxZoomLimit {
			z = MaxZoomLimit
		}
		s.maxZoom = z
	}
}

// WithProperties attaches properties that are copied onto every tile
// feature of the annotation
func WithProperties(props map[string]interface{}) Option {
	return func(s *ShapeAnnotation) {
		s.properties = make(map[string]interface{}, len(props))
		for k, v := range props {
			s.properties[k] = v
		}
	}
}

// ShapeAnnotation is a line or polygon annotation. Its tile index is built
// on the first UpdateTile call and never rebuilt. All methods are safe for
// concurrent use.
type ShapeAnnotation struct {
	id         ID
	geometry   geometry.Geometry
	maxZoom    uint8
	properties map[string]interface{}
	bound      orb.Bound
	hasBound   bool

	mu    sync.Mutex
	built atomic.Bool
	index *geojsonvt.GeoJSONVT
	err   error
}

// NewShapeAnnotation creates an annotation from a copy of g. No tiling work
// happens until the first tile is requested.
func NewShapeAnnotation(id ID, g geometry.Geometry, opts ...Option) *ShapeAnnotation {
	g = geometry.Clone(g)
	s := &ShapeAnnotation{
		id:       id,
		geometry: g,
		maxZoom:  DefaultMaxZoom,
	}
	for _, opt := range opts {
		opt(s)
	}
	if g != nil {
		s.bound, s.hasBound = projectedBound(g)
	}
	return s
}

// ID returns the annotation identifier
func (s *ShapeAnnotation) ID() ID {
	return s.id
}

// Geometry returns the annotation geometry
func (s *ShapeAnnotation) Geometry() geometry.Geometry {
	return s.geometry
}

// MaxZoom returns the deepest zoom the annotation is tiled to
func (s *ShapeAnnotation) MaxZoom() uint8 {
	return s.maxZoom
}

// Properties returns a copy of the annotation properties
func (s *ShapeAnnotation) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(s.properties))
	for k, v := range s.properties {
		props[k] = v
	}
	return props
}

// LayerID returns the name of the layer the annotation writes to
func (s *ShapeAnnotation) LayerID() string {
	return LayerPrefix + fmt.Sprint(uint64(s.id))
}

// Bound returns the normalized bound of the annotation geometry. The second
// value is false for an empty geometry.
func (s *ShapeAnnotation) Bound() (orb.Bound, bool) {
	return s.bound, s.hasBound
}

// Built reports whether the tile index has been built
func (s *ShapeAnnotation) Built() bool {
	return s.built.Load()
}

// UpdateTile adds the annotation's features for tileID to tile. A tile the
// annotation does not reach is left untouched. Point geometries fail with
// ErrUnsupportedGeometryKind; the failure is kept and returned on every call.
func (s *ShapeAnnotation) UpdateTile(tileID TileID, tile *Tile) error {
	index, err := s.tiler()
	if err != nil {
		return err
	}

	t := index.GetTile(tileID.Z, tileID.X, tileID.Y)
	if t == nil {
		return nil
	}

	tile.AddFeatures(s.LayerID(), AdaptFeatures(t.Features))
	return nil
}

// tiler returns the tile index, building it exactly once
func (s *ShapeAnnotation) tiler() (*geojsonvt.GeoJSONVT, error) {
	if s.built.Load() {
		return s.index, s.err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.built.Load() {
		s.index, s.err = s.build()
		s.built.Store(true)
	}
	return s.index, s.err
}

func (s *ShapeAnnotation) build() (*geojsonvt.GeoJSONVT, error) {
	feature, err := Normalize(s.geometry, Tolerance(s.maxZoom))
	if err != nil {
		return nil, fmt.Errorf("annotation %d: %w", s.id, err)
	}
	feature.Tags = s.properties

	opts := geojsonvt.DefaultOptions()
	opts.MaxZoom = s.maxZoom
	opts.Tolerance = BaseTolerance
	opts.Extent = Extent
	opts.Buffer = Buffer

	return geojsonvt.New([]*geojsonvt.ProjectedFeature{feature}, opts), nil
}
