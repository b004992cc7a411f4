// cmd/render.go - Single tile render command
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valpere/annotation_tiler/internal/config"
	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/internal/output"
	"github.com/valpere/annotation_tiler/internal/tile"
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a single annotation tile",
	Long: `Render a single tile from the configured annotation source.

The tile is selected with --tile z/x/y or with the --z/--x/--y coordinates and
written as GeoJSON, JSON or a Mapbox Vector Tile.

Examples:
  # Render a tile to stdout as GeoJSON
  annotile render --source shapes.geojson --tile 14/8362/5956

  # Render using coordinates to a vector tile file
  annotile render --source shapes.geojson --z 14 --x 8362 --y 5956 --format mvt --output tile.mvt

  # Render with tile-local coordinates and metadata
  annotile render --source routes.osm.pbf --tile 10/511/340 --coordinate-system tile --metadata`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	// Tile selection flags
	renderCmd.Flags().String("tile", "", "tile coordinate as z/x/y")
	renderCmd.Flags().Int("z", 0, "tile zoom level")
	renderCmd.Flags().Int("x", 0, "tile x coordinate")
	renderCmd.Flags().Int("y", 0, "tile y coordinate")

	// Output flags
	renderCmd.Flags().StringP("output", "o", "", "output file path (default: stdout)")
	renderCmd.Flags().Bool("metadata", false, "include tile metadata in output")

	renderCmd.MarkFlagsRequiredTogether("z", "x", "y")
	renderCmd.MarkFlagsMutuallyExclusive("tile", "z")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	tileStr, _ := cmd.Flags().GetString("tile")
	outputPath, _ := cmd.Flags().GetString("output")
	metadata, _ := cmd.Flags().GetBool("metadata")

	var coord *tile.Coordinate
	switch {
	case tileStr != "":
		coord, err = tile.ParseCoordinate(tileStr)
		if err != nil {
			return fmt.Errorf("invalid tile: %w", err)
		}
	case cmd.Flags().Changed("z"):
		z, _ := cmd.Flags().GetInt("z")
		x, _ := cmd.Flags().GetInt("x")
		y, _ := cmd.Flags().GetInt("y")
		if err := tile.ValidateCoordinates(z, x, y); err != nil {
			return fmt.Errorf("invalid tile coordinates: %w", err)
		}
		coord = tile.NewCoordinate(z, x, y)
	default:
		return fmt.Errorf("either --tile or --z/--x/--y coordinates must be specified")
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := loadSource(ctx, cfg)
	if err != nil {
		return err
	}

	processed, err := tile.NewRenderer(src).Render(ctx, coord)
	if err != nil {
		return fmt.Errorf("failed to render tile: %w", err)
	}

	writerConfig := &output.WriterConfig{
		Format:           format,
		Pretty:           cfg.Output.Pretty,
		Compression:      cfg.Output.Compression,
		Metadata:         metadata,
		CoordinateSystem: cfg.Output.CoordinateSystem,
	}

	writer, err := output.NewWriter(writerConfig, outputPath, false)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer writer.Close()

	if err := writer.Write(processed); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	logger.L().Debug("tile rendered",
		"tile", coord.String(),
		"features", processed.Metadata.FeatureCount,
		"layers", processed.Metadata.Layers,
		"duration", processed.Metadata.RenderTime)

	return nil
}
