// cmd/inspect.go - Vector tile inspection command
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/annotation_tiler/internal/tile"
	"github.com/valpere/annotation_tiler/pkg/annotation"
	"github.com/valpere/annotation_tiler/pkg/mvt"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize an encoded vector tile",
	Long: `Decode a Mapbox Vector Tile, plain or gzipped, and print its layers and
feature counts. With --geojson the tile is converted to GeoJSON instead; pass
--tile to place its features in WGS84.

Examples:
  # List layers of a rendered tile
  annotile inspect ./tiles/14/8362/5956.mvt

  # Convert a rendered tile back to GeoJSON
  annotile inspect ./tiles/14/8362/5956.mvt.gz --geojson --tile 14/8362/5956`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Bool("geojson", false, "print the tile as GeoJSON")
	inspectCmd.Flags().String("tile", "", "tile coordinate as z/x/y (default: tile-local coordinates)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	asGeoJSON, _ := cmd.Flags().GetBool("geojson")
	tileStr, _ := cmd.Flags().GetString("tile")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read tile: %w", err)
	}

	decoded, err := mvt.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode tile: %w", err)
	}

	out := cmd.OutOrStdout()
	if !asGeoJSON {
		summarizeTile(out, decoded)
		return nil
	}

	options := &mvt.ConversionOptions{CoordinateSystem: mvt.CoordSystemTile}
	var id annotation.TileID
	if tileStr != "" {
		coord, err := tile.ParseCoordinate(tileStr)
		if err != nil {
			return fmt.Errorf("invalid tile: %w", err)
		}
		id = coord.ID()
		options.CoordinateSystem = mvt.CoordSystemWGS84
	}

	converter, err := mvt.NewConverterWithOptions(options)
	if err != nil {
		return err
	}

	text, err := converter.ConvertToGeoJSONString(decoded, id, true)
	if err != nil {
		return fmt.Errorf("failed to convert tile: %w", err)
	}

	fmt.Fprintln(out, text)
	return nil
}

// summarizeTile prints one line per layer followed by the total
func summarizeTile(w io.Writer, t *annotation.Tile) {
	for _, layer := range t.Layers() {
		fmt.Fprintf(w, "%s\t%d features\n", layer.Name(), layer.Len())
	}
	fmt.Fprintf(w, "total\t%d layers, %d features\n", len(t.LayerNames()), t.FeatureCount())
}
