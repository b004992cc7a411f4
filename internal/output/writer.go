// internal/output/writer.go - Output writing implementation
package output

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/valpere/annotation_tiler/internal/tile"
)

// FileWriter writes output to a single file with optional compression
type FileWriter struct {
	formatter   Formatter
	destination Destination
}

// NewFileWriter creates a new file-based writer
func NewFileWriter(config *WriterConfig, destination string) (*FileWriter, error) {
	formatter, err := newWriterFormatter(config)
	if err != nil {
		return nil, err
	}

	dest, err := newFileDestination(destination, config.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to create file destination: %w", err)
	}

	return &FileWriter{
		formatter:   formatter,
		destination: dest,
	}, nil
}

// Write writes a single rendered tile to the output destination
func (w *FileWriter) Write(t *tile.ProcessedTile) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	if _, err := w.destination.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	return nil
}

// WriteBatch writes multiple rendered tiles as a batch operation
func (w *FileWriter) WriteBatch(tiles []*tile.ProcessedTile) error {
	data, err := w.formatter.FormatBatch(tiles)
	if err != nil {
		return fmt.Errorf("batch formatting failed: %w", err)
	}

	if _, err := w.destination.Write(data); err != nil {
		return fmt.Errorf("batch write failed: %w", err)
	}

	return nil
}

// BytesWritten returns the size of the written file
func (w *FileWriter) BytesWritten() int64 {
	return w.destination.Size()
}

// Name returns the path of the written file
func (w *FileWriter) Name() string {
	return w.destination.Name()
}

// Close closes the writer and underlying destination
func (w *FileWriter) Close() error {
	return w.destination.Close()
}

// StreamWriter writes output to a stream, standard output by default
type StreamWriter struct {
	formatter Formatter
	out       io.Writer
	newline   bool
	written   atomic.Int64
}

// NewStdoutWriter creates a new stdout-based writer
func NewStdoutWriter(config *WriterConfig) (*StreamWriter, error) {
	return NewStreamWriter(config, os.Stdout)
}

// NewStreamWriter creates a writer for out. Text formats are followed by a
// newline for readability.
func NewStreamWriter(config *WriterConfig, out io.Writer) (*StreamWriter, error) {
	formatter, err := newWriterFormatter(config)
	if err != nil {
		return nil, err
	}

	return &StreamWriter{
		formatter: formatter,
		out:       out,
		newline:   config.Format != FormatMVT,
	}, nil
}

// Write writes a single tile to the stream
func (w *StreamWriter) Write(t *tile.ProcessedTile) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}
	return w.emit(data)
}

// WriteBatch writes multiple tiles to the stream
func (w *StreamWriter) WriteBatch(tiles []*tile.ProcessedTile) error {
	data, err := w.formatter.FormatBatch(tiles)
	if err != nil {
		return fmt.Errorf("batch formatting failed: %w", err)
	}
	return w.emit(data)
}

func (w *StreamWriter) emit(data []byte) error {
	n, err := w.out.Write(data)
	w.written.Add(int64(n))
	if err != nil {
		return fmt.Errorf("write to stream failed: %w", err)
	}
	if !w.newline {
		return nil
	}
	n, err = w.out.Write([]byte("\n"))
	w.written.Add(int64(n))
	return err
}

// BytesWritten returns the number of bytes written to the stream
func (w *StreamWriter) BytesWritten() int64 {
	return w.written.Load()
}

// Close is a no-op for stream writers
func (w *StreamWriter) Close() error {
	return nil
}

// MultiFileWriter writes each tile to a separate file laid out as
// {z}/{x}/{y}.{ext}, with a .gz suffix when compressing
type MultiFileWriter struct {
	formatter Formatter
	baseDir   string
	config    *WriterConfig
	written   atomic.Int64
}

// NewMultiFileWriter creates a writer that outputs each tile to a separate file
func NewMultiFileWriter(config *WriterConfig, baseDir string) (*MultiFileWriter, error) {
	formatter, err := newWriterFormatter(config)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &MultiFileWriter{
		formatter: formatter,
		baseDir:   baseDir,
		config:    config,
	}, nil
}

// Write writes a single tile to its own file
func (w *MultiFileWriter) Write(t *tile.ProcessedTile) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	dest, err := newFileDestination(w.Path(t.Coordinate), w.config.Compression)
	if err != nil {
		return fmt.Errorf("failed to create file destination: %w", err)
	}

	if _, err := dest.Write(data); err != nil {
		dest.Close()
		return fmt.Errorf("write failed: %w", err)
	}

	err = dest.Close()
	w.written.Add(dest.Size())
	return err
}

// WriteBatch writes each tile in the batch to separate files
func (w *MultiFileWriter) WriteBatch(tiles []*tile.ProcessedTile) error {
	for _, t := range tiles {
		if err := w.Write(t); err != nil {
			return fmt.Errorf("failed to write tile %s: %w", t.Coordinate.String(), err)
		}
	}
	return nil
}

// Path returns the file a tile is written to
func (w *MultiFileWriter) Path(coord *tile.Coordinate) string {
	name := fmt.Sprintf("%d/%d/%d%s", coord.Z, coord.X, coord.Y, w.config.Format.Extension())
	if w.config.Compression {
		name += ".gz"
	}
	return filepath.Join(w.baseDir, filepath.FromSlash(name))
}

// BytesWritten returns the total size of the tile files written so far
func (w *MultiFileWriter) BytesWritten() int64 {
	return w.written.Load()
}

// Close is a no-op for multi-file writer
func (w *MultiFileWriter) Close() error {
	return nil
}

// fileDestination implements the Destination interface for file output
type fileDestination struct {
	file       *os.File
	compressor *gzip.Writer
	name       string
	size       int64
}

// newFileDestination creates a new file destination with optional compression
func newFileDestination(path string, compression bool) (*fileDestination, error) {
	if compression && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	d := &fileDestination{
		file: file,
		name: path,
	}
	if compression {
		d.compressor = gzip.NewWriter(fileCounter{d})
	}
	return d, nil
}

// fileCounter writes to the underlying file and counts the bytes
type fileCounter struct {
	d *fileDestination
}

func (c fileCounter) Write(p []byte) (int, error) {
	n, err := c.d.file.Write(p)
	c.d.size += int64(n)
	return n, err
}

// Write implements io.Writer
func (d *fileDestination) Write(p []byte) (int, error) {
	if d.compressor != nil {
		return d.compressor.Write(p)
	}
	return fileCounter{d}.Write(p)
}

// Close implements io.Closer
func (d *fileDestination) Close() error {
	if d.compressor != nil {
		if err := d.compressor.Close(); err != nil {
			d.file.Close()
			return err
		}
	}
	return d.file.Close()
}

// Name returns the destination file path
func (d *fileDestination) Name() string {
	return d.name
}

// Size returns the number of bytes written to the file. With compression
// the gzip trailer is only counted after Close.
func (d *fileDestination) Size() int64 {
	return d.size
}

// NewWriter creates the appropriate writer based on configuration. An empty
// destination or "-" selects stdout.
func NewWriter(config *WriterConfig, destination string, multiFile bool) (Writer, error) {
	if destination == "" || destination == "-" {
		return NewStdoutWriter(config)
	}

	if multiFile {
		return NewMultiFileWriter(config, destination)
	}

	return NewFileWriter(config, destination)
}

func newWriterFormatter(config *WriterConfig) (Formatter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format:           config.Format,
		Pretty:           config.Pretty,
		IncludeStats:     config.Metadata,
		CoordinateSystem: config.CoordinateSystem,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}
	return formatter, nil
}
