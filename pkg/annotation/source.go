// pkg/annotation/source.go - Spatially indexed set of shape annotations
package annotation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"go.uber.org/multierr"
)

// minRectLength keeps R-tree rectangles non-degenerate for axis-aligned
// lines, in normalized units
const minRectLength = 1e-12

// indexedShape wraps an annotation for R-tree storage
type indexedShape struct {
	shape *ShapeAnnotation
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial
func (e *indexedShape) Bounds() rtreego.Rect {
	return e.rect
}

// Source is a set of shape annotations queried by tile. Only annotations
// whose bound reaches the buffered tile are asked to contribute.
type Source struct {
	mu      sync.RWMutex
	shapes  map[ID]*indexedShape
	rtree   *rtreego.Rtree
	unbound map[ID]*ShapeAnnotation
}

// NewSource creates an empty source
func NewSource() *Source {
	return &Source{
		shapes:  make(map[ID]*indexedShape),
		rtree:   rtreego.NewTree(2, 25, 50),
		unbound: make(map[ID]*ShapeAnnotation),
	}
}

// Add inserts an annotation. Point geometries and duplicate IDs are rejected.
func (s *Source) Add(shape *ShapeAnnotation) error {
	if shape == nil || shape.Geometry() == nil {
		return fmt.Errorf("annotation has no geometry")
	}
	if kind := shape.Geometry().Kind(); kind.IsPoint() {
		return fmt.Errorf("annotation %d: %w: %s", shape.ID(), ErrUnsupportedGeometryKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shapes[shape.ID()]; ok {
		return fmt.Errorf("annotation %d already exists", shape.ID())
	}
	if _, ok := s.unbound[shape.ID()]; ok {
		return fmt.Errorf("annotation %d already exists", shape.ID())
	}

	bound, ok := shape.Bound()
	if !ok {
		s.unbound[shape.ID()] = shape
		return nil
	}

	rect, err := boundRect(bound)
	if err != nil {
		return fmt.Errorf("annotation %d: %w", shape.ID(), err)
	}

	entry := &indexedShape{shape: shape, rect: rect}
	s.shapes[shape.ID()] = entry
	s.rtree.Insert(entry)

	return nil
}

// Remove deletes an annotation and reports whether it was present
func (s *Source) Remove(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.unbound[id]; ok {
		delete(s.unbound, id)
		return true
	}

	entry, ok := s.shapes[id]
	if !ok {
		return false
	}
	s.rtree.Delete(entry)
	delete(s.shapes, id)
	return true
}

// Get returns the annotation with the given ID
func (s *Source) Get(id ID) (*ShapeAnnotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.shapes[id]; ok {
		return entry.shape, true
	}
	shape, ok := s.unbound[id]
	return shape, ok
}

// Len returns the number of annotations
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shapes) + len(s.unbound)
}

// IDs returns all annotation IDs in ascending order
func (s *Source) IDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]ID, 0, len(s.shapes)+len(s.unbound))
	for id := range s.shapes {
		ids = append(ids, id)
	}
	for id := range s.unbound {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Bound returns the normalized bound covering every annotation
func (s *Source) Bound() (orb.Bound, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bound orb.Bound
	found := false
	for _, entry := range s.shapes {
		b, _ := entry.shape.Bound()
		if !found {
			bound = b
			found = true
			continue
		}
		bound = bound.Union(b)
	}
	return bound, found
}

// Query returns the annotations whose bound intersects the buffered tile,
// in ascending ID order
func (s *Source) Query(tileID TileID) []*ShapeAnnotation {
	rect, err := boundRect(TileBound(tileID))
	if err != nil {
		return nil
	}

	s.mu.RLock()
	spatials := s.rtree.SearchIntersect(rect)
	s.mu.RUnlock()

	shapes := make([]*ShapeAnnotation, 0, len(spatials))
	for _, sp := range spatials {
		if entry, ok := sp.(*indexedShape); ok {
			shapes = append(shapes, entry.shape)
		}
	}
	sort.Slice(shapes, func(i, j int) bool { return shapes[i].ID() < shapes[j].ID() })
	return shapes
}

// UpdateTile asks every annotation reaching tileID to add its features to
// tile. Failures of single annotations do not stop the others; all of them
// are returned combined.
func (s *Source) UpdateTile(tileID TileID, tile *Tile) error {
	var errs error
	for _, shape := range s.Query(tileID) {
		errs = multierr.Append(errs, shape.UpdateTile(tileID, tile))
	}
	return errs
}

// TileBound returns the normalized bound of a tile expanded by the buffer
func TileBound(tileID TileID) orb.Bound {
	k := float64(Buffer) / float64(Extent)
	z2 := float64(uint64(1) << tileID.Z)
	return orb.Bound{
		Min: orb.Point{(float64(tileID.X) - k) / z2, (float64(tileID.Y) - k) / z2},
		Max: orb.Point{(float64(tileID.X) + 1 + k) / z2, (float64(tileID.Y) + 1 + k) / z2},
	}
}

func boundRect(b orb.Bound) (rtreego.Rect, error) {
	point := rtreego.Point{b.Min[0], b.Min[1]}

	lengths := []float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]}
	for i := range lengths {
		if lengths[i] < minRectLength {
			lengths[i] = minRectLength
		}
	}

	return rtreego.NewRect(point, lengths)
}
