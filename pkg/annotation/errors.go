// pkg/annotation/errors.go - Errors reported by the annotation tiler
package annotation

import "errors"

var (
	// ErrUnsupportedGeometryKind is returned when a point geometry is routed
	// into the shape pipeline. Point annotations are rendered elsewhere.
	ErrUnsupportedGeometryKind = errors.New("unsupported geometry kind")

	// ErrInternalFeatureTypeViolation is the panic value raised when the tile
	// index emits a feature type that was never normalized into it.
	ErrInternalFeatureTypeViolation = errors.New("internal feature type violation")
)
