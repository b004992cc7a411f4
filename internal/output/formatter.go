// internal/output/formatter.go - Output formatting implementation
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/valpere/annotation_tiler/internal/metrics"
	"github.com/valpere/annotation_tiler/internal/tile"
	"github.com/valpere/annotation_tiler/pkg/mvt"
)

// TileProperty names the feature property holding the source tile in
// combined GeoJSON output
const TileProperty = "_tile"

// GeoJSONFormatter formats tiles as GeoJSON FeatureCollection
type GeoJSONFormatter struct {
	converter    *mvt.Converter
	pretty       bool
	includeStats bool
}

// NewGeoJSONFormatter creates a new GeoJSON formatter
func NewGeoJSONFormatter(pretty, includeStats bool, coordinateSystem string) (*GeoJSONFormatter, error) {
	converter, err := newConverter(includeStats, coordinateSystem)
	if err != nil {
		return nil, err
	}

	return &GeoJSONFormatter{
		converter:    converter,
		pretty:       pretty,
		includeStats: includeStats,
	}, nil
}

// Format formats a single rendered tile as GeoJSON
func (f *GeoJSONFormatter) Format(t *tile.ProcessedTile) ([]byte, error) {
	if t.Error != nil {
		return nil, fmt.Errorf("cannot format tile with error: %w", t.Error)
	}

	fc, _, err := f.converter.Convert(t.Tile, t.Coordinate.ID())
	if err != nil {
		return nil, fmt.Errorf("GeoJSON conversion failed: %w", err)
	}

	data, err := marshal(fc, f.pretty)
	if err != nil {
		return nil, err
	}

	metrics.TilesRenderedTotal.WithLabelValues(string(FormatGeoJSON)).Inc()
	return data, nil
}

// FormatBatch formats multiple tiles as a single GeoJSON FeatureCollection
func (f *GeoJSONFormatter) FormatBatch(tiles []*tile.ProcessedTile) ([]byte, error) {
	collection := geojson.NewFeatureCollection()

	var processedTiles, failedTiles int
	for _, t := range tiles {
		if t.Error != nil {
			failedTiles++
			continue
		}

		fc, _, err := f.converter.Convert(t.Tile, t.Coordinate.ID())
		if err != nil {
			failedTiles++
			continue
		}
		processedTiles++

		for _, feature := range fc.Features {
			if f.includeStats {
				feature.Properties[TileProperty] = t.Coordinate.String()
			}
			collection.Append(feature)
		}
	}

	// Add collection-level metadata
	if f.includeStats {
		collection.ExtraMembers = geojson.Properties{
			"metadata": map[string]interface{}{
				"total_tiles":     len(tiles),
				"processed_tiles": processedTiles,
				"failed_tiles":    failedTiles,
				"total_features":  len(collection.Features),
				"generated_at":    time.Now().UTC(),
			},
		}
	}

	data, err := marshal(collection, f.pretty)
	if err != nil {
		return nil, err
	}

	metrics.TilesRenderedTotal.WithLabelValues(string(FormatGeoJSON)).Add(float64(processedTiles))
	return data, nil
}

// ContentType returns the MIME type for GeoJSON
func (f *GeoJSONFormatter) ContentType() string {
	return "application/geo+json"
}

// JSONFormatter formats tiles as structured JSON objects wrapping the
// GeoJSON data with the tile coordinate
type JSONFormatter struct {
	converter    *mvt.Converter
	pretty       bool
	includeStats bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(pretty, includeStats bool, coordinateSystem string) (*JSONFormatter, error) {
	converter, err := newConverter(false, coordinateSystem)
	if err != nil {
		return nil, err
	}

	return &JSONFormatter{
		converter:    converter,
		pretty:       pretty,
		includeStats: includeStats,
	}, nil
}

// Format formats a single tile as a JSON object
func (f *JSONFormatter) Format(t *tile.ProcessedTile) ([]byte, error) {
	data, err := marshal(f.tileOutput(t), f.pretty)
	if err != nil {
		return nil, err
	}

	if t.Error == nil {
		metrics.TilesRenderedTotal.WithLabelValues(string(FormatJSON)).Inc()
	}
	return data, nil
}

// FormatBatch formats multiple tiles as a JSON array
func (f *JSONFormatter) FormatBatch(tiles []*tile.ProcessedTile) ([]byte, error) {
	output := make([]interface{}, 0, len(tiles))

	var successCount, errorCount int
	for _, t := range tiles {
		entry := f.tileOutput(t)
		if _, failed := entry["error"]; failed {
			errorCount++
		} else {
			successCount++
		}
		output = append(output, entry)
	}

	result := map[string]interface{}{
		"tiles": output,
	}

	if f.includeStats {
		result["summary"] = map[string]interface{}{
			"total_tiles":   len(tiles),
			"success_tiles": successCount,
			"failed_tiles":  errorCount,
			"generated_at":  time.Now().UTC(),
		}
	}

	data, err := marshal(result, f.pretty)
	if err != nil {
		return nil, err
	}

	metrics.TilesRenderedTotal.WithLabelValues(string(FormatJSON)).Add(float64(successCount))
	return data, nil
}

func (f *JSONFormatter) tileOutput(t *tile.ProcessedTile) map[string]interface{} {
	output := map[string]interface{}{
		"coordinate": t.Coordinate,
		"data":       nil,
	}

	if t.Error != nil {
		output["error"] = t.Error.Error()
		return output
	}

	fc, _, err := f.converter.Convert(t.Tile, t.Coordinate.ID())
	if err != nil {
		output["error"] = err.Error()
		return output
	}
	output["data"] = fc

	if f.includeStats && t.Metadata != nil {
		output["metadata"] = t.Metadata
	}

	return output
}

// ContentType returns the MIME type for JSON
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// MVTFormatter encodes tiles as Mapbox Vector Tiles
type MVTFormatter struct{}

// NewMVTFormatter creates a new vector tile formatter
func NewMVTFormatter() *MVTFormatter {
	return &MVTFormatter{}
}

// Format encodes a single tile
func (f *MVTFormatter) Format(t *tile.ProcessedTile) ([]byte, error) {
	if t.Error != nil {
		return nil, fmt.Errorf("cannot format tile with error: %w", t.Error)
	}

	data, err := mvt.Encode(t.Tile)
	if err != nil {
		return nil, fmt.Errorf("vector tile encoding failed: %w", err)
	}

	metrics.TilesRenderedTotal.WithLabelValues(string(FormatMVT)).Inc()
	return data, nil
}

// FormatBatch is not supported: vector tiles cannot be concatenated
func (f *MVTFormatter) FormatBatch(tiles []*tile.ProcessedTile) ([]byte, error) {
	return nil, errors.New("mvt output requires one file per tile")
}

// ContentType returns the MIME type for vector tiles
func (f *MVTFormatter) ContentType() string {
	return "application/vnd.mapbox-vector-tile"
}

// NewFormatter creates a formatter based on the specified configuration
func NewFormatter(config *FormatterConfig) (Formatter, error) {
	switch config.Format {
	case FormatGeoJSON:
		return NewGeoJSONFormatter(config.Pretty, config.IncludeStats, config.CoordinateSystem)
	case FormatJSON:
		return NewJSONFormatter(config.Pretty, config.IncludeStats, config.CoordinateSystem)
	case FormatMVT:
		return NewMVTFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", config.Format)
	}
}

// FormatSingle is a convenience function to format a single tile
func FormatSingle(t *tile.ProcessedTile, format Format, pretty bool) ([]byte, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format: format,
		Pretty: pretty,
	})
	if err != nil {
		return nil, err
	}

	return formatter.Format(t)
}

func newConverter(includeMetadata bool, coordinateSystem string) (*mvt.Converter, error) {
	if coordinateSystem == "" {
		coordinateSystem = mvt.CoordSystemWGS84
	}
	return mvt.NewConverterWithOptions(&mvt.ConversionOptions{
		IncludeMetadata:  includeMetadata,
		CoordinateSystem: coordinateSystem,
	})
}

func marshal(v interface{}, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
