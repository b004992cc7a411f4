// cmd/root.go - Root command implementation
package cmd

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/annotation_tiler/internal/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "annotile",
	Short: "Render shape annotations into vector tiles",
	Long: `Annotile renders line and polygon annotations into Mapbox Vector Tiles and
GeoJSON. Annotations are loaded once, indexed, and cut into tiles on demand
with the same clipping and simplification rules a map renderer expects.

Annotation Sources:
- GeoJSON feature collections on disk, plain or gzipped
- GeoJSON fetched over HTTP/HTTPS
- OpenStreetMap PBF extracts (ways become lines and areas)
- PostGIS tables via a configurable query

Examples:
  # Render a single tile from a GeoJSON file
  annotile render --source shapes.geojson --tile 14/8362/5956 --format mvt --output tile.mvt

  # Render every tile covering the annotations down to zoom 12
  annotile batch --source shapes.geojson --min-zoom 0 --max-zoom 12 --output-dir ./tiles/

  # Serve tiles from a PostGIS table with a redis cache
  annotile serve --dsn "postgres://localhost/gis" --cache redis --addr :8080

  # Summarize an encoded vector tile
  annotile inspect tile.mvt`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := viper.GetString("logging.level")
		if viper.GetBool("logging.verbose") {
			level = "debug"
		}
		logger.Setup(level, viper.GetString("logging.format"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.annotile.yaml)")

	// Source configuration flags
	rootCmd.PersistentFlags().String("source-type", "auto", "annotation source type (auto, geojson, http, osm, postgres)")
	rootCmd.PersistentFlags().StringP("source", "s", "", "annotation file path")
	rootCmd.PersistentFlags().String("url", "", "annotation GeoJSON URL (HTTP source)")
	rootCmd.PersistentFlags().String("dsn", "", "PostgreSQL connection string (postgres source)")
	rootCmd.PersistentFlags().String("query", "", "query returning id, geojson and max zoom (postgres source)")
	rootCmd.PersistentFlags().Int("annotation-max-zoom", 16, "default maximum zoom of loaded annotations")

	// Output flags
	rootCmd.PersistentFlags().StringP("format", "f", "geojson", "output format (geojson, json, mvt)")
	rootCmd.PersistentFlags().Bool("pretty", true, "pretty print JSON output")
	rootCmd.PersistentFlags().Bool("compression", false, "compress output files")
	rootCmd.PersistentFlags().String("coordinate-system", "wgs84", "GeoJSON coordinates (wgs84, tile)")

	// Processing flags
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().Int("concurrency", 10, "number of concurrent tile renders")
	rootCmd.PersistentFlags().Duration("timeout", 30*1000000000, "request timeout (HTTP source)")
	rootCmd.PersistentFlags().Int("retries", 3, "number of retry attempts (HTTP source)")

	// Bind flags to viper
	viper.BindPFlag("source.type", rootCmd.PersistentFlags().Lookup("source-type"))
	viper.BindPFlag("source.path", rootCmd.PersistentFlags().Lookup("source"))
	viper.BindPFlag("source.url", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("source.dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("source.query", rootCmd.PersistentFlags().Lookup("query"))
	viper.BindPFlag("tiling.max_zoom", rootCmd.PersistentFlags().Lookup("annotation-max-zoom"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output.pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("output.compression", rootCmd.PersistentFlags().Lookup("compression"))
	viper.BindPFlag("output.coordinate_system", rootCmd.PersistentFlags().Lookup("coordinate-system"))
	viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("batch.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	viper.BindPFlag("source.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("source.max_retries", rootCmd.PersistentFlags().Lookup("retries"))
}

// initConfig reads in .env, config file and ENV variables if set.
func initConfig() {
	// A missing .env file is not an error
	_ = godotenv.Load(".env")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".annotile" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".annotile")
	}

	// Environment variables, e.g. ANNOTILE_SOURCE_DSN
	viper.SetEnvPrefix("ANNOTILE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		logger.L().Debug("using config file", "path", viper.ConfigFileUsed())
	}
}
