// internal/tile/renderer.go - Annotation tile rendering
package tile

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/annotation_tiler/internal"
	"github.com/valpere/annotation_tiler/internal/metrics"
	"github.com/valpere/annotation_tiler/pkg/annotation"
	"github.com/valpere/annotation_tiler/pkg/mvt"
)

// Renderer renders tiles from the annotations of a source
type Renderer struct {
	source *annotation.Source
}

// NewRenderer creates a renderer over src
func NewRenderer(src *annotation.Source) *Renderer {
	return &Renderer{source: src}
}

// Source returns the annotation source being rendered
func (r *Renderer) Source() *annotation.Source {
	return r.source
}

// Render builds the tile at coord from every annotation intersecting it
func (r *Renderer) Render(ctx context.Context, coord *Coordinate) (*ProcessedTile, error) {
	if err := ctx.Err(); err != nil {
		return &ProcessedTile{Coordinate: coord, Error: err}, err
	}

	if err := ValidateCoordinates(coord.Z, coord.X, coord.Y); err != nil {
		appErr := internal.NewError(internal.ErrorCodeValidation, "invalid tile coordinate", err)
		return &ProcessedTile{Coordinate: coord, Error: appErr}, appErr
	}

	start := time.Now()

	t := annotation.NewTile()
	if err := r.source.UpdateTile(coord.ID(), t); err != nil {
		appErr := internal.NewError(internal.ErrorCodeProcessing, fmt.Sprintf("failed to render tile %s", coord), err)
		return &ProcessedTile{Coordinate: coord, Error: appErr}, appErr
	}

	renderTime := time.Since(start)
	count := t.FeatureCount()

	metrics.RenderDurationMs.Observe(float64(renderTime.Microseconds()) / 1000)
	metrics.FeaturesEmittedTotal.Add(float64(count))
	if count == 0 {
		metrics.TilesEmptyTotal.Inc()
	}

	return &ProcessedTile{
		Coordinate: coord,
		Tile:       t,
		Metadata: &Metadata{
			Layers:       t.LayerNames(),
			FeatureCount: count,
			RenderTime:   renderTime,
			Version:      mvt.Version,
			Extent:       annotation.Extent,
			Empty:        count == 0,
		},
	}, nil
}

// ValidateCoordinates ensures tile coordinates are within valid bounds
func ValidateCoordinates(z, x, y int) error {
	if z < 0 || z > annotation.MaxZoomLimit {
		return fmt.Errorf("invalid zoom level %d: must be between 0 and %d", z, annotation.MaxZoomLimit)
	}

	maxTile := 1 << uint(z)
	if x < 0 || x >= maxTile {
		return fmt.Errorf("invalid x coordinate %d for zoom %d: must be between 0 and %d", x, z, maxTile-1)
	}

	if y < 0 || y >= maxTile {
		return fmt.Errorf("invalid y coordinate %d for zoom %d: must be between 0 and %d", y, z, maxTile-1)
	}

	return nil
}
