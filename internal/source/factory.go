// internal/source/factory.go - Loader factory
package source

import (
	"fmt"

	"github.com/valpere/annotation_tiler/internal"
	"github.com/valpere/annotation_tiler/internal/config"
)

// NewLoader creates the loader matching the configured source type
func NewLoader(cfg *config.Config) (Loader, error) {
	sourceType := cfg.DetermineSourceType()

	switch sourceType {
	case internal.SourceTypeGeoJSON:
		if cfg.Source.Path == "" {
			return nil, internal.NewError(internal.ErrorCodeConfig, "source path is required for GeoJSON sources", nil)
		}
		return NewGeoJSONLoader(cfg.Source.Path, cfg.MaxZoom()), nil
	case internal.SourceTypeHTTP:
		if cfg.Source.URL == "" && cfg.Source.Path == "" {
			return nil, internal.NewError(internal.ErrorCodeConfig, "source url is required for HTTP sources", nil)
		}
		return NewHTTPLoader(cfg), nil
	case internal.SourceTypeOSM:
		if cfg.Source.Path == "" {
			return nil, internal.NewError(internal.ErrorCodeConfig, "source path is required for OSM sources", nil)
		}
		return NewOSMLoader(cfg.Source.Path, cfg.Source.AreaTags, cfg.MaxZoom()), nil
	case internal.SourceTypePostgres:
		dsn := cfg.Source.DSN
		if dsn == "" {
			dsn = cfg.Source.Path
		}
		if dsn == "" {
			return nil, internal.NewError(internal.ErrorCodeConfig, "source dsn is required for postgres sources", nil)
		}
		return NewPostgresLoader(dsn, cfg.Source.Query, cfg.MaxZoom()), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
