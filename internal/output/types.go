// internal/output/types.go - Output handling types
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/valpere/annotation_tiler/internal/tile"
)

// Format represents different output formats supported by the application
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatJSON    Format = "json"
	FormatMVT     Format = "mvt"
)

// Writer defines the interface for writing rendered tiles to various
// destinations. BytesWritten is final once the writer is closed.
type Writer interface {
	Write(tile *tile.ProcessedTile) error
	WriteBatch(tiles []*tile.ProcessedTile) error
	BytesWritten() int64
	Close() error
}

// Formatter defines the interface for formatting rendered tiles into different output formats
type Formatter interface {
	Format(tile *tile.ProcessedTile) ([]byte, error)
	FormatBatch(tiles []*tile.ProcessedTile) ([]byte, error)
	ContentType() string
}

// Destination represents an output destination (file, stdout, etc.). Size
// counts the bytes that reached the destination, after compression.
type Destination interface {
	io.WriteCloser
	Name() string
	Size() int64
}

// BatchWriteResult summarizes a finished batch job. SkippedTiles are empty
// tiles left out of the output.
type BatchWriteResult struct {
	TotalTiles   int
	SuccessTiles int
	FailedTiles  int
	SkippedTiles int
	BytesWritten int64
	Duration     time.Duration
	Errors       []error
}

// WriterConfig contains configuration for creating writers
type WriterConfig struct {
	Format           Format
	Pretty           bool
	Compression      bool
	Metadata         bool
	CoordinateSystem string
}

// FormatterConfig contains configuration for creating formatters
type FormatterConfig struct {
	Format           Format
	Pretty           bool
	IncludeStats     bool
	CoordinateSystem string
}

// ParseFormat converts a configured format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format: %s", s)
	}
	return f, nil
}

// String returns a string representation of the format
func (f Format) String() string {
	return string(f)
}

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	switch f {
	case FormatGeoJSON, FormatJSON, FormatMVT:
		return true
	default:
		return false
	}
}

// Extension returns the file extension of the format, including the dot
func (f Format) Extension() string {
	switch f {
	case FormatGeoJSON:
		return ".geojson"
	case FormatMVT:
		return ".mvt"
	default:
		return ".json"
	}
}
