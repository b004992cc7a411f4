// internal/source/loader.go - Annotation loading interfaces and helpers
package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/multierr"

	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/pkg/annotation"
	"github.com/valpere/annotation_tiler/pkg/geometry"
)

// MaxZoomProperty is the feature property that overrides the default
// maximum zoom of a loaded annotation
const MaxZoomProperty = "maxzoom"

// Loader loads shape annotations from a configured source
type Loader interface {
	Load(ctx context.Context) ([]*annotation.ShapeAnnotation, error)
}

// Populate loads annotations and adds them to src. Annotations rejected by
// the source are reported in the returned error; the rest are still added.
func Populate(ctx context.Context, l Loader, src *annotation.Source) (int, error) {
	shapes, err := l.Load(ctx)
	if err != nil {
		return 0, err
	}

	var errs error
	added := 0
	for _, shape := range shapes {
		if err := src.Add(shape); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		added++
	}

	return added, errs
}

// FromFeatureCollection converts GeoJSON features into shape annotations.
// Features without a usable numeric id get sequential ids that do not
// collide with explicit ones. Point features are skipped.
func FromFeatureCollection(fc *geojson.FeatureCollection, maxZoom uint8) []*annotation.ShapeAnnotation {
	used := make(map[annotation.ID]bool, len(fc.Features))
	ids := make([]annotation.ID, len(fc.Features))
	explicit := make([]bool, len(fc.Features))
	for i, f := range fc.Features {
		if id, ok := featureID(f.ID); ok && !used[id] {
			ids[i], explicit[i] = id, true
			used[id] = true
		}
	}

	var next annotation.ID = 1
	shapes := make([]*annotation.ShapeAnnotation, 0, len(fc.Features))
	for i, f := range fc.Features {
		if !explicit[i] {
			for used[next] {
				next++
			}
			ids[i] = next
			used[next] = true
		}

		if f.Geometry == nil {
			logger.L().Warn("skipping feature without geometry", "id", uint64(ids[i]))
			continue
		}

		g, err := geometry.FromOrb(f.Geometry)
		if err != nil {
			logger.L().Warn("skipping feature", "id", uint64(ids[i]), "error", err)
			continue
		}
		if g.Kind().IsPoint() {
			logger.L().Warn("skipping point feature", "id", uint64(ids[i]), "kind", g.Kind().String())
			continue
		}

		zoom, props := splitProperties(f.Properties, maxZoom)
		shapes = append(shapes, annotation.NewShapeAnnotation(ids[i], g,
			annotation.WithMaxZoom(zoom),
			annotation.WithProperties(props),
		))
	}

	return shapes
}

// featureID interprets a GeoJSON feature id as an annotation id
func featureID(v interface{}) (annotation.ID, bool) {
	switch id := v.(type) {
	case float64:
		if id < 0 || id != math.Trunc(id) || id >= math.MaxUint64 {
			return 0, false
		}
		return annotation.ID(id), true
	case int:
		if id < 0 {
			return 0, false
		}
		return annotation.ID(id), true
	case int64:
		if id < 0 {
			return 0, false
		}
		return annotation.ID(id), true
	case uint64:
		return annotation.ID(id), true
	case string:
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return 0, false
		}
		return annotation.ID(n), true
	default:
		return 0, false
	}
}

// splitProperties extracts the max zoom override and returns the remaining
// properties
func splitProperties(props geojson.Properties, fallback uint8) (uint8, map[string]interface{}) {
	zoom := fallback
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		if k == MaxZoomProperty {
			if z, ok := zoomValue(v); ok {
				zoom = z
			}
			continue
		}
		out[k] = v
	}
	return zoom, out
}

func zoomValue(v interface{}) (uint8, bool) {
	var f float64
	switch z := v.(type) {
	case float64:
		f = z
	case int:
		f = float64(z)
	case int64:
		f = float64(z)
	case string:
		n, err := strconv.Atoi(z)
		if err != nil {
			return 0, false
		}
		f = float64(n)
	default:
		return 0, false
	}

	if f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	if f > annotation.MaxZoomLimit {
		f = annotation.MaxZoomLimit
	}
	return uint8(f), true
}

// decodeFeatureCollection parses GeoJSON, gunzipping it first when the data
// carries the gzip magic bytes
func decodeFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	data, err := decompress(data)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feature collection: %w", err)
	}
	return fc, nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}
	return out, nil
}
