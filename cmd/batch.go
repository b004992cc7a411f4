// cmd/batch.go - Batch rendering command
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/valpere/annotation_tiler/internal/batch"
	"github.com/valpere/annotation_tiler/internal/config"
	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/internal/output"
	"github.com/valpere/annotation_tiler/internal/tile"
	"github.com/valpere/annotation_tiler/pkg/annotation"
	"github.com/valpere/annotation_tiler/pkg/geojsonvt"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Render a pyramid of annotation tiles",
	Long: `Render many tiles from the configured annotation source.

Tiles are selected by a zoom range, optionally limited to a bounding box. Without
a bounding box the tiles covering every loaded annotation are rendered. Empty
tiles are skipped unless --skip-empty=false is given.

Examples:
  # Render every tile covering the annotations from zoom 0 to 12
  annotile batch --source shapes.geojson --min-zoom 0 --max-zoom 12 --output-dir ./tiles/

  # Render a bounding box as vector tiles
  annotile batch --source shapes.geojson --format mvt --zoom 14 --bbox "-74.0,40.7,-73.9,40.8" --output-dir ./tiles/

  # Render specific tiles into a single GeoJSON file
  annotile batch --source shapes.geojson --tiles "10/301/384,10/302/384" --output tiles.geojson --single-file

  # Render with custom concurrency and chunk size
  annotile batch --dsn "postgres://localhost/gis" --max-zoom 10 --concurrency 20 --chunk-size 50`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Tile range flags
	batchCmd.Flags().Int("zoom", 0, "single zoom level to render")
	batchCmd.Flags().Int("min-zoom", 0, "minimum zoom level")
	batchCmd.Flags().Int("max-zoom", 0, "maximum zoom level (default: annotation max zoom)")
	batchCmd.Flags().String("bbox", "", "bounding box: 'min_lon,min_lat,max_lon,max_lat'")
	batchCmd.Flags().String("tiles", "", "specific tiles list: 'z/x/y,z/x/y,...'")

	// Output flags
	batchCmd.Flags().String("output-dir", "./output", "output directory for tiles")
	batchCmd.Flags().StringP("output", "o", "", "single output file (use with --single-file)")
	batchCmd.Flags().Bool("single-file", false, "combine all tiles into single file")

	// Processing flags
	batchCmd.Flags().Int("chunk-size", 100, "number of tiles per processing chunk")
	batchCmd.Flags().Bool("fail-on-error", false, "stop processing on first error")
	batchCmd.Flags().Bool("skip-empty", true, "do not write tiles without features")
	batchCmd.Flags().Bool("progress", true, "show progress indicator")

	batchCmd.MarkFlagsMutuallyExclusive("zoom", "min-zoom")
	batchCmd.MarkFlagsMutuallyExclusive("zoom", "max-zoom")
	batchCmd.MarkFlagsMutuallyExclusive("tiles", "bbox")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	tilesStr, _ := cmd.Flags().GetString("tiles")
	bboxStr, _ := cmd.Flags().GetString("bbox")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	outputFile, _ := cmd.Flags().GetString("output")
	singleFile, _ := cmd.Flags().GetBool("single-file")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	showProgress, _ := cmd.Flags().GetBool("progress")

	failOnError := cfg.Batch.FailOnError
	if cmd.Flags().Changed("fail-on-error") {
		failOnError, _ = cmd.Flags().GetBool("fail-on-error")
	}
	skipEmpty := cfg.Batch.SkipEmpty
	if cmd.Flags().Changed("skip-empty") {
		skipEmpty, _ = cmd.Flags().GetBool("skip-empty")
	}

	minZoom, maxZoom, err := zoomRange(cmd, cfg.Tiling.MaxZoom)
	if err != nil {
		return err
	}

	if singleFile && outputFile == "" {
		return fmt.Errorf("output file must be specified when using --single-file")
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	if singleFile && format == output.FormatMVT {
		return fmt.Errorf("vector tiles cannot be combined into a single file")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := loadSource(ctx, cfg)
	if err != nil {
		return err
	}

	var tileRanges []*tile.TileRange
	switch {
	case tilesStr != "":
		tileRanges, err = parseTilesList(tilesStr)
		if err != nil {
			return fmt.Errorf("failed to parse tiles list: %w", err)
		}
	case bboxStr != "":
		bound, err := parseBoundingBox(bboxStr)
		if err != nil {
			return fmt.Errorf("failed to parse bounding box: %w", err)
		}
		tileRanges = tile.Pyramid(bound, minZoom, maxZoom)
	default:
		bound, ok := src.Bound()
		if !ok {
			return fmt.Errorf("no annotations loaded")
		}
		tileRanges = tile.Pyramid(bound, minZoom, maxZoom)
	}

	if len(tileRanges) == 0 {
		return fmt.Errorf("no tiles to render")
	}

	l := logger.L()

	var totalTiles int64
	for _, tr := range tileRanges {
		totalTiles += tr.Count()
	}
	l.Debug("rendering tiles", "tiles", totalTiles, "ranges", len(tileRanges), "annotations", src.Len())

	jobConfig := &batch.JobConfig{
		Concurrency: cfg.Batch.Concurrency,
		ChunkSize:   chunkSize,
		Timeout:     cfg.Batch.Timeout,
		FailOnError: failOnError,
		SkipEmpty:   skipEmpty,
		MultiFile:   !singleFile,
	}

	writerConfig := &output.WriterConfig{
		Format:           format,
		Pretty:           cfg.Output.Pretty,
		Compression:      cfg.Output.Compression,
		Metadata:         true,
		CoordinateSystem: cfg.Output.CoordinateSystem,
	}

	destination := outputDir
	if singleFile {
		destination = outputFile
	}
	writer, err := output.NewWriter(writerConfig, destination, !singleFile)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}

	var reporter batch.ProgressReporter
	if showProgress && cfg.Logging.Progress {
		reporter = NewConsoleProgressReporter(os.Stderr)
	}

	processor := batch.NewBatchProcessor(tile.NewRenderer(src), writer, reporter)
	job := batch.NewJob(generateJobID(), tileRanges, jobConfig)

	l.Debug("starting batch job", "job", job.ID)

	if err := processor.Process(ctx, job); err != nil {
		writer.Close()
		return fmt.Errorf("batch rendering failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	result := processor.Result(job)
	if len(result.Errors) > 0 {
		l.Warn("some tiles failed to render", "failed", result.FailedTiles, "error", job.Error)
	}

	l.Info("batch rendering completed",
		"job", job.ID,
		"processed", job.Progress.ProcessedTiles,
		"skipped", result.SkippedTiles,
		"failed", result.FailedTiles,
		"bytes", result.BytesWritten,
		"duration", result.Duration,
		"throughput", fmt.Sprintf("%.2f tiles/s", job.Progress.Throughput))

	return nil
}

// zoomRange resolves the zoom flags. Without flags every zoom from 0 to the
// annotation max zoom is rendered.
func zoomRange(cmd *cobra.Command, defaultMax int) (int, int, error) {
	minZoom, maxZoom := 0, defaultMax

	if cmd.Flags().Changed("zoom") {
		zoom, _ := cmd.Flags().GetInt("zoom")
		minZoom, maxZoom = zoom, zoom
	} else {
		if cmd.Flags().Changed("min-zoom") {
			minZoom, _ = cmd.Flags().GetInt("min-zoom")
		}
		if cmd.Flags().Changed("max-zoom") {
			maxZoom, _ = cmd.Flags().GetInt("max-zoom")
		}
	}

	if minZoom < 0 || maxZoom > annotation.MaxZoomLimit || minZoom > maxZoom {
		return 0, 0, fmt.Errorf("invalid zoom range %d-%d: must be within 0-%d", minZoom, maxZoom, annotation.MaxZoomLimit)
	}
	return minZoom, maxZoom, nil
}

// parseBoundingBox parses a 'min_lon,min_lat,max_lon,max_lat' string into a
// normalized Web Mercator bound
func parseBoundingBox(bbox string) (orb.Bound, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounding box must have 4 values: min_lon,min_lat,max_lon,max_lat")
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid coordinate value: %s", part)
		}
		coords[i] = val
	}

	if coords[0] > coords[2] || coords[1] > coords[3] {
		return orb.Bound{}, fmt.Errorf("bounding box minimum exceeds maximum")
	}
	if coords[0] < -180 || coords[2] > 180 || coords[1] < -90 || coords[3] > 90 {
		return orb.Bound{}, fmt.Errorf("bounding box outside of -180,-90,180,90")
	}

	// Projected y grows southwards
	nw := geojsonvt.Project(orb.Point{coords[0], annotation.ClampLatitude(coords[3])})
	se := geojsonvt.Project(orb.Point{coords[2], annotation.ClampLatitude(coords[1])})
	return orb.Bound{Min: nw, Max: se}, nil
}

// parseTilesList parses a comma-separated list of tile coordinates
func parseTilesList(tiles string) ([]*tile.TileRange, error) {
	var ranges []*tile.TileRange

	for _, part := range strings.Split(tiles, ",") {
		coord, err := tile.ParseCoordinate(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}

		// Create a single-tile range
		ranges = append(ranges, tile.NewTileRange(coord.Z, coord.X, coord.X, coord.Y, coord.Y))
	}

	return ranges, nil
}

// generateJobID creates a unique job ID
func generateJobID() string {
	return fmt.Sprintf("batch-%d", time.Now().Unix())
}

// ConsoleProgressReporter implements progress reporting to a console
type ConsoleProgressReporter struct {
	out        io.Writer
	lastUpdate time.Time
}

// NewConsoleProgressReporter creates a new console progress reporter
func NewConsoleProgressReporter(out io.Writer) *ConsoleProgressReporter {
	return &ConsoleProgressReporter{out: out}
}

// ReportProgress reports job progress, at most once per second
func (r *ConsoleProgressReporter) ReportProgress(job *batch.Job) error {
	if time.Since(r.lastUpdate) < time.Second {
		return nil
	}

	progress := job.Progress.CalculateProgress()
	fmt.Fprintf(r.out, "\rProgress: %.1f%% (%d/%d tiles, %d empty, %.2f tiles/sec)",
		progress, job.Progress.ProcessedTiles, job.Progress.TotalTiles,
		job.Progress.EmptyTiles, job.Progress.Throughput)

	r.lastUpdate = time.Now()
	return nil
}

// ReportChunkComplete reports chunk completion
func (r *ConsoleProgressReporter) ReportChunkComplete(job *batch.Job, chunk *batch.ChunkResult) error {
	return r.ReportProgress(job)
}

// ReportJobComplete reports job completion
func (r *ConsoleProgressReporter) ReportJobComplete(job *batch.Job) error {
	fmt.Fprintf(r.out, "\rCompleted: 100%% (%d tiles rendered, %d failed)\n",
		job.Progress.ProcessedTiles, job.Progress.FailedTiles)
	return nil
}

// ReportJobFailed reports job failure
func (r *ConsoleProgressReporter) ReportJobFailed(job *batch.Job, err error) error {
	fmt.Fprintf(r.out, "\rFailed: %s\n", err.Error())
	return nil
}
