// internal/types.go - Common types for internal packages
package internal

import (
	"errors"
	"time"
)

// SourceType represents the type of annotation source
type SourceType string

const (
	SourceTypeAuto     SourceType = "auto"
	SourceTypeGeoJSON  SourceType = "geojson"
	SourceTypeHTTP     SourceType = "http"
	SourceTypeOSM      SourceType = "osm"
	SourceTypePostgres SourceType = "postgres"
)

// ProcessingStats represents metrics for processing operations
type ProcessingStats struct {
	TotalTiles     int64
	ProcessedTiles int64
	EmptyTiles     int64
	FailedTiles    int64
	StartTime      time.Time
	EndTime        time.Time
	Throughput     float64
}

// Error represents application-specific errors
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new application error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCodeOf returns the code of the first application error in err's
// chain, or an empty string
func ErrorCodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ErrorCode constants for common error types
const (
	ErrorCodeNetwork     = "NETWORK_ERROR"
	ErrorCodeProcessing  = "PROCESSING_ERROR"
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodeConfig      = "CONFIG_ERROR"
	ErrorCodeNotFound    = "NOT_FOUND"
	ErrorCodeTimeout     = "TIMEOUT_ERROR"
	ErrorCodeFileSystem  = "FILESYSTEM_ERROR"
	ErrorCodePermission  = "PERMISSION_ERROR"
	ErrorCodeUnsupported = "UNSUPPORTED_GEOMETRY"
	ErrorCodeDatabase    = "DATABASE_ERROR"
	ErrorCodeCache       = "CACHE_ERROR"
)
