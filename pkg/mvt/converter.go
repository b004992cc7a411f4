// pkg/mvt/converter.go - Tile to GeoJSON conversion implementation
package mvt

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/valpere/annotation_tiler/pkg/annotation"
)

// Converter handles conversion of annotation tiles to GeoJSON format
type Converter struct {
	options *ConversionOptions
}

// ConversionOptions configures the conversion process
type ConversionOptions struct {
	IncludeMetadata  bool     `json:"include_metadata"`          // Include tile metadata in output
	LayerFilter      []string `json:"layer_filter,omitempty"`    // Only include specified layers
	PropertyFilter   []string `json:"property_filter,omitempty"` // Only include specified properties
	CoordinateSystem string   `json:"coordinate_system"`         // "wgs84" or "tile"
}

// ConversionMetadata contains metadata about the conversion process
type ConversionMetadata struct {
	Layers       []string `json:"layers"`
	FeatureCount int      `json:"feature_count"`
	Version      int      `json:"version"`
	Extent       int      `json:"extent"`
	TileID       string   `json:"tile_id"`
}

// Coordinate system constants
const (
	CoordSystemWGS84 = "wgs84"
	CoordSystemTile  = "tile"
)

// LayerProperty names the property holding a feature's layer
const LayerProperty = "_layer"

// NewConverter creates a converter producing WGS84 GeoJSON
func NewConverter() *Converter {
	return &Converter{
		options: &ConversionOptions{
			CoordinateSystem: CoordSystemWGS84,
		},
	}
}

// NewConverterWithOptions creates a converter with custom options
func NewConverterWithOptions(options *ConversionOptions) (*Converter, error) {
	if err := ValidateConversionOptions(options); err != nil {
		return nil, fmt.Errorf("invalid conversion options: %w", err)
	}

	return &Converter{
		options: options,
	}, nil
}

// Options returns the converter options
func (c *Converter) Options() ConversionOptions {
	return *c.options
}

// Convert transforms a tile into a GeoJSON FeatureCollection. Each feature
// records its layer in the _layer property.
func (c *Converter) Convert(tile *annotation.Tile, id annotation.TileID) (*geojson.FeatureCollection, *ConversionMetadata, error) {
	if tile == nil {
		return nil, nil, fmt.Errorf("tile is nil")
	}

	layers := Layers(tile)
	if c.options.CoordinateSystem == CoordSystemWGS84 {
		layers.ProjectToWGS84(maptile.New(id.X, id.Y, maptile.Zoom(id.Z)))
	}

	fc := geojson.NewFeatureCollection()
	metadata := &ConversionMetadata{
		Layers:  make([]string, 0, len(layers)),
		Version: Version,
		Extent:  annotation.Extent,
		TileID:  id.String(),
	}

	for _, layer := range layers {
		// Apply layer filter if specified
		if len(c.options.LayerFilter) > 0 && !contains(c.options.LayerFilter, layer.Name) {
			continue
		}
		metadata.Layers = append(metadata.Layers, layer.Name)

		for _, feature := range layer.Features {
			properties := make(geojson.Properties, len(feature.Properties)+1)
			for key, value := range feature.Properties {
				if len(c.options.PropertyFilter) > 0 && !contains(c.options.PropertyFilter, key) {
					continue
				}
				properties[key] = value
			}
			properties[LayerProperty] = layer.Name
			feature.Properties = properties

			fc.Append(feature)
		}
	}

	metadata.FeatureCount = len(fc.Features)
	if c.options.IncludeMetadata {
		fc.ExtraMembers = geojson.Properties{"metadata": metadata}
	}

	return fc, metadata, nil
}

// ConvertToGeoJSONString converts a tile to a GeoJSON string
func (c *Converter) ConvertToGeoJSONString(tile *annotation.Tile, id annotation.TileID, pretty bool) (string, error) {
	fc, _, err := c.Convert(tile, id)
	if err != nil {
		return "", err
	}

	var jsonData []byte
	if pretty {
		jsonData, err = json.MarshalIndent(fc, "", "  ")
	} else {
		jsonData, err = json.Marshal(fc)
	}

	if err != nil {
		return "", fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	return string(jsonData), nil
}

// ToGeoJSON converts a tile to a WGS84 FeatureCollection
func ToGeoJSON(tile *annotation.Tile, id annotation.TileID) (*geojson.FeatureCollection, error) {
	fc, _, err := NewConverter().Convert(tile, id)
	return fc, err
}

// ValidateConversionOptions validates the conversion options
func ValidateConversionOptions(options *ConversionOptions) error {
	if options == nil {
		return fmt.Errorf("options are nil")
	}
	if options.CoordinateSystem != CoordSystemWGS84 && options.CoordinateSystem != CoordSystemTile {
		return fmt.Errorf("invalid coordinate system: %s, must be '%s' or '%s'",
			options.CoordinateSystem, CoordSystemWGS84, CoordSystemTile)
	}
	return nil
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
