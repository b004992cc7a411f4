// cmd/serve.go - Tile server command
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/annotation_tiler/internal/cache"
	"github.com/valpere/annotation_tiler/internal/config"
	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/internal/server"
	"github.com/valpere/annotation_tiler/internal/tile"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve annotation tiles over HTTP",
	Long: `Load the configured annotations and serve tiles on demand.

Tiles are available at /tiles/{z}/{x}/{y}.{ext} where ext is mvt, pbf, geojson
or json. Tiles without features answer 204 No Content. Encoded tiles are kept
in a memory or redis cache. Prometheus metrics are exposed at /metrics.

Examples:
  # Serve a GeoJSON file with the default memory cache
  annotile serve --source shapes.geojson

  # Serve a PostGIS table with a shared redis cache
  annotile serve --dsn "postgres://localhost/gis" --cache redis --redis-addr localhost:6379`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("metrics-path", "/metrics", "path of the metrics endpoint")
	serveCmd.Flags().String("cache", "memory", "tile cache (none, memory, redis)")
	serveCmd.Flags().Int("cache-size", 10000, "maximum tiles kept by the memory cache")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "redis address (redis cache)")

	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.metrics_path", serveCmd.Flags().Lookup("metrics-path"))
	viper.BindPFlag("cache.type", serveCmd.Flags().Lookup("cache"))
	viper.BindPFlag("cache.max_entries", serveCmd.Flags().Lookup("cache-size"))
	viper.BindPFlag("cache.redis_addr", serveCmd.Flags().Lookup("redis-addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := loadSource(ctx, cfg)
	if err != nil {
		return err
	}

	tileCache, err := cache.New(&cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to create tile cache: %w", err)
	}
	if tileCache != nil {
		defer tileCache.Close()
		if rc, ok := tileCache.(*cache.RedisCache); ok {
			if err := rc.Ping(ctx); err != nil {
				logger.L().Warn("redis cache unreachable, tiles will be rendered on every request", "addr", cfg.Cache.RedisAddr, "error", err)
			}
		}
	}

	srv, err := server.New(tile.NewRenderer(src), tileCache, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.ListenAndServe(ctx)
}
