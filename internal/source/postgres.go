// internal/source/postgres.go - PostGIS annotation loader
package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/valpere/annotation_tiler/internal"
	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/pkg/annotation"
	"github.com/valpere/annotation_tiler/pkg/geometry"
)

// PostgresLoader reads annotations from a query returning three columns:
// a non-negative id, the geometry as GeoJSON text and a nullable max zoom
type PostgresLoader struct {
	dsn     string
	query   string
	maxZoom uint8
}

// NewPostgresLoader creates a loader for the given connection string
func NewPostgresLoader(dsn, query string, maxZoom uint8) *PostgresLoader {
	return &PostgresLoader{
		dsn:     dsn,
		query:   query,
		maxZoom: maxZoom,
	}
}

// Load runs the query and converts every row
func (l *PostgresLoader) Load(ctx context.Context) ([]*annotation.ShapeAnnotation, error) {
	db, err := sql.Open("postgres", l.dsn)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeDatabase, "failed to open database", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, internal.NewError(internal.ErrorCodeDatabase, "failed to connect to database", err)
	}

	rows, err := db.QueryContext(ctx, l.query)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeDatabase, "annotation query failed", err)
	}
	defer rows.Close()

	var shapes []*annotation.ShapeAnnotation
	for rows.Next() {
		var (
			id      int64
			text    string
			maxZoom sql.NullInt64
		)
		if err := rows.Scan(&id, &text, &maxZoom); err != nil {
			return nil, internal.NewError(internal.ErrorCodeDatabase, "failed to scan annotation row", err)
		}

		shape, err := rowAnnotation(id, text, maxZoom, l.maxZoom)
		if err != nil {
			logger.L().Warn("skipping annotation row", "id", id, "error", err)
			continue
		}
		shapes = append(shapes, shape)
	}
	if err := rows.Err(); err != nil {
		return nil, internal.NewError(internal.ErrorCodeDatabase, "failed to read annotation rows", err)
	}

	logger.L().Debug("loaded annotations", "source", "postgres", "annotations", len(shapes))
	return shapes, nil
}

// rowAnnotation converts one query row
func rowAnnotation(id int64, text string, maxZoom sql.NullInt64, fallback uint8) (*annotation.ShapeAnnotation, error) {
	if id < 0 {
		return nil, fmt.Errorf("negative id %d", id)
	}

	g, err := geometry.UnmarshalGeoJSON([]byte(text))
	if err != nil {
		return nil, err
	}
	if g.Kind().IsPoint() {
		return nil, fmt.Errorf("%w: %s", annotation.ErrUnsupportedGeometryKind, g.Kind())
	}

	zoom := fallback
	if maxZoom.Valid {
		if maxZoom.Int64 < 0 {
			return nil, fmt.Errorf("negative max zoom %d", maxZoom.Int64)
		}
		if maxZoom.Int64 > annotation.MaxZoomLimit {
			maxZoom.Int64 = annotation.MaxZoomLimit
		}
		zoom = uint8(maxZoom.Int64)
	}

	return annotation.NewShapeAnnotation(annotation.ID(id), g, annotation.WithMaxZoom(zoom)), nil
}
