// internal/source/osm.go - OpenStreetMap PBF annotation loader
package source

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/valpere/annotation_tiler/internal"
	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/pkg/annotation"
	"github.com/valpere/annotation_tiler/pkg/geometry"
)

// OSMLoader turns the ways of an OSM PBF extract into annotations. Closed
// ways carrying one of the area tags become polygons, all other ways line
// strings. The way id is the annotation id.
type OSMLoader struct {
	path     string
	areaTags []string
	maxZoom  uint8
}

// NewOSMLoader creates a loader for the extract at path
func NewOSMLoader(path string, areaTags []string, maxZoom uint8) *OSMLoader {
	return &OSMLoader{
		path:     path,
		areaTags: areaTags,
		maxZoom:  maxZoom,
	}
}

// Load scans the extract. Ways are read first; when they do not carry node
// locations a second pass resolves them from the node section.
func (l *OSMLoader) Load(ctx context.Context) ([]*annotation.ShapeAnnotation, error) {
	var ways []*osm.Way
	missing := make(map[osm.NodeID]orb.Point)

	err := l.scan(ctx, func(s *osmpbf.Scanner) {
		s.SkipNodes = true
		s.SkipRelations = true
	}, func(o osm.Object) {
		way, ok := o.(*osm.Way)
		if !ok {
			return
		}
		ways = append(ways, way)
		for _, node := range way.Nodes {
			if node.Lat == 0 && node.Lon == 0 {
				missing[node.ID] = orb.Point{}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if len(missing) > 0 {
		logger.L().Debug("resolving way node locations", "path", l.path, "nodes", len(missing))
		err := l.scan(ctx, func(s *osmpbf.Scanner) {
			s.SkipWays = true
			s.SkipRelations = true
		}, func(o osm.Object) {
			node, ok := o.(*osm.Node)
			if !ok {
				return
			}
			if _, wanted := missing[node.ID]; wanted {
				missing[node.ID] = orb.Point{node.Lon, node.Lat}
			}
		})
		if err != nil {
			return nil, err
		}
	}

	shapes := make([]*annotation.ShapeAnnotation, 0, len(ways))
	for _, way := range ways {
		shape, ok := wayAnnotation(way, missing, l.areaTags, l.maxZoom)
		if !ok {
			continue
		}
		shapes = append(shapes, shape)
	}

	logger.L().Debug("loaded annotations", "path", l.path, "ways", len(ways), "annotations", len(shapes))
	return shapes, nil
}

// scan runs one pass over the extract
func (l *OSMLoader) scan(ctx context.Context, configure func(*osmpbf.Scanner), visit func(osm.Object)) error {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("OSM extract not found: %s", l.path), err)
		}
		return internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to open OSM extract: %s", l.path), err)
	}
	defer file.Close()

	// The third parameter is the number of parallel decoders to use.
	scanner := osmpbf.New(ctx, file, runtime.GOMAXPROCS(-1))
	defer scanner.Close()
	configure(scanner)

	for scanner.Scan() {
		visit(scanner.Object())
	}

	if err := scanner.Err(); err != nil {
		return internal.NewError(internal.ErrorCodeProcessing, fmt.Sprintf("failed to scan OSM extract: %s", l.path), err)
	}
	return nil
}

// wayAnnotation converts a way into an annotation. Node locations come from
// the way itself or, when absent, from locations.
func wayAnnotation(way *osm.Way, locations map[osm.NodeID]orb.Point, areaTags []string, maxZoom uint8) (*annotation.ShapeAnnotation, bool) {
	points := make([]orb.Point, 0, len(way.Nodes))
	for _, node := range way.Nodes {
		p := orb.Point{node.Lon, node.Lat}
		if node.Lat == 0 && node.Lon == 0 {
			loc, ok := locations[node.ID]
			if !ok {
				continue
			}
			p = loc
		}
		points = append(points, p)
	}

	if len(points) < 2 {
		return nil, false
	}

	var g geometry.Geometry = geometry.LineString(points)
	if isArea(way, areaTags) && len(points) >= 4 {
		g = geometry.Polygon{orb.Ring(points)}
	}

	props := make(map[string]interface{}, len(way.Tags))
	for _, tag := range way.Tags {
		props[tag.Key] = tag.Value
	}

	return annotation.NewShapeAnnotation(annotation.ID(way.ID), g,
		annotation.WithMaxZoom(maxZoom),
		annotation.WithProperties(props),
	), true
}

// isArea reports whether a way is closed and carries an area tag
func isArea(way *osm.Way, areaTags []string) bool {
	n := len(way.Nodes)
	if n < 4 || way.Nodes[0].ID != way.Nodes[n-1].ID {
		return false
	}
	if way.Tags.Find("area") == "no" {
		return false
	}
	for _, key := range areaTags {
		if v := way.Tags.Find(key); v != "" && v != "no" {
			return true
		}
	}
	return false
}
