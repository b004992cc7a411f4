// pkg/geometry/geojson.go - GeoJSON helpers
package geometry

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// UnmarshalGeoJSON decodes a bare GeoJSON geometry object
func UnmarshalGeoJSON(data []byte) (Geometry, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal GeoJSON geometry: %w", err)
	}

	return FromOrb(g.Geometry())
}

// MarshalGeoJSON encodes the geometry as a bare GeoJSON geometry object
func MarshalGeoJSON(g Geometry) ([]byte, error) {
	return geojson.NewGeometry(g.Orb()).MarshalJSON()
}
