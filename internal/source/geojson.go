// internal/source/geojson.go - GeoJSON file annotation loader
package source

import (
	"context"
	"fmt"
	"os"

	"github.com/valpere/annotation_tiler/internal"
	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/pkg/annotation"
)

// GeoJSONLoader loads annotations from a GeoJSON FeatureCollection file,
// optionally gzip-compressed
type GeoJSONLoader struct {
	path    string
	maxZoom uint8
}

// NewGeoJSONLoader creates a loader for the file at path
func NewGeoJSONLoader(path string, maxZoom uint8) *GeoJSONLoader {
	return &GeoJSONLoader{
		path:    path,
		maxZoom: maxZoom,
	}
}

// Load reads and converts the file
func (l *GeoJSONLoader) Load(ctx context.Context) ([]*annotation.ShapeAnnotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("annotation file not found: %s", l.path), err)
		}
		return nil, internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("cannot access annotation file: %s", l.path), err)
	}

	if !info.Mode().IsRegular() {
		return nil, internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("path is not a regular file: %s", l.path), nil)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to read annotation file: %s", l.path), err)
	}

	fc, err := decodeFeatureCollection(data)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeProcessing, fmt.Sprintf("invalid annotation file: %s", l.path), err)
	}

	shapes := FromFeatureCollection(fc, l.maxZoom)
	logger.L().Debug("loaded annotations", "path", l.path, "features", len(fc.Features), "annotations", len(shapes))

	return shapes, nil
}
