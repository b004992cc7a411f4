// pkg/annotation/tile.go - Destination tile, layers and features
package annotation

import (
	"sort"
	"sync"
)

// FeatureType is the renderer-facing feature type. Values match the
// geometry types of the Mapbox Vector Tile format.
type FeatureType uint8

const (
	FeatureTypeUnknown    FeatureType = 0
	FeatureTypeLineString FeatureType = 2
	FeatureTypePolygon    FeatureType = 3
)

// String returns a readable name for the feature type
func (t FeatureType) String() string {
	switch t {
	case FeatureTypeLineString:
		return "LineString"
	case FeatureTypePolygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

// Coordinate is an integer tile-local position
type Coordinate struct {
	X, Y int16
}

// Ring is an ordered sequence of tile-local positions
type Ring []Coordinate

// Feature is a tile feature. It is immutable once created and may be shared
// between tiles and readers.
type Feature struct {
	typ        FeatureType
	geometry   []Ring
	properties map[string]interface{}
}

// NewFeature creates a feature from copies of the rings and properties
func NewFeature(t FeatureType, rings []Ring, properties map[string]interface{}) *Feature {
	geometry := make([]Ring, len(rings))
	for i, r := range rings {
		geometry[i] = append(Ring(nil), r...)
	}
	return newFeature(t, geometry, properties)
}

// newFeature takes ownership of the rings
func newFeature(t FeatureType, rings []Ring, properties map[string]interface{}) *Feature {
	var props map[string]interface{}
	if len(properties) > 0 {
		props = make(map[string]interface{}, len(properties))
		for k, v := range properties {
			props[k] = v
		}
	}
	return &Feature{typ: t, geometry: rings, properties: props}
}

// Type returns the feature type
func (f *Feature) Type() FeatureType {
	return f.typ
}

// Geometry returns the feature rings. The result must not be modified.
func (f *Feature) Geometry() []Ring {
	return f.geometry
}

// PointCount returns the number of positions over all rings
func (f *Feature) PointCount() int {
	count := 0
	for _, r := range f.geometry {
		count += len(r)
	}
	return count
}

// Properties returns a copy of the feature properties
func (f *Feature) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(f.properties))
	for k, v := range f.properties {
		props[k] = v
	}
	return props
}

// Property returns a single property value
func (f *Feature) Property(key string) (interface{}, bool) {
	v, ok := f.properties[key]
	return v, ok
}

// Layer is a named, append-only list of features
type Layer struct {
	name     string
	mu       sync.RWMutex
	features []*Feature
}

// Name returns the layer name
func (l *Layer) Name() string {
	return l.name
}

// Features returns a snapshot of the layer's features in insertion order
func (l *Layer) Features() []*Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Feature(nil), l.features...)
}

// Len returns the number of features in the layer
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.features)
}

// Tile is a destination tile: a set of named layers. Writers from several
// annotations may add features concurrently.
type Tile struct {
	mu     sync.Mutex
	layers map[string]*Layer
}

// NewTile creates an empty tile
func NewTile() *Tile {
	return &Tile{layers: make(map[string]*Layer)}
}

// AddFeatures appends features to the named layer, creating the layer on
// first use. Nothing is created when features is empty. Features are not
// deduplicated.
func (t *Tile) AddFeatures(layerID string, features []*Feature) {
	if len(features) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	layer, ok := t.layers[layerID]
	if !ok {
		layer = &Layer{name: layerID}
		t.layers[layerID] = layer
	}

	layer.mu.Lock()
	layer.features = append(layer.features, features...)
	layer.mu.Unlock()
}

// Layer returns the named layer
func (t *Tile) Layer(name string) (*Layer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	layer, ok := t.layers[name]
	return layer, ok
}

// LayerNames returns the names of all layers, sorted
func (t *Tile) LayerNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.layers))
	for name := range t.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Layers returns all layers ordered by name
func (t *Tile) Layers() []*Layer {
	names := t.LayerNames()

	t.mu.Lock()
	defer t.mu.Unlock()

	layers := make([]*Layer, 0, len(names))
	for _, name := range names {
		if layer, ok := t.layers[name]; ok {
			layers = append(layers, layer)
		}
	}
	return layers
}

// FeatureCount returns the number of features over all layers
func (t *Tile) FeatureCount() int {
	count := 0
	for _, layer := range t.Layers() {
		count += layer.Len()
	}
	return count
}

// Empty reports whether the tile holds no layers
func (t *Tile) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.layers) == 0
}
