// internal/server/server.go - Annotation tile HTTP server
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/valpere/annotation_tiler/internal"
	"github.com/valpere/annotation_tiler/internal/cache"
	"github.com/valpere/annotation_tiler/internal/config"
	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/internal/metrics"
	"github.com/valpere/annotation_tiler/internal/output"
	"github.com/valpere/annotation_tiler/internal/tile"
)

// TilePrefix is the path prefix tiles are served under
const TilePrefix = "/tiles/"

// Server serves rendered annotation tiles at /tiles/{z}/{x}/{y}.{ext} where
// ext is mvt, pbf, geojson or json. Empty tiles answer 204.
type Server struct {
	renderer   *tile.Renderer
	cache      cache.Cache
	cfg        *config.Config
	log        *slog.Logger
	formatters map[string]output.Formatter
}

// New creates a server. A nil cache disables caching.
func New(renderer *tile.Renderer, c cache.Cache, cfg *config.Config) (*Server, error) {
	formatters := make(map[string]output.Formatter)
	for _, f := range []output.Format{output.FormatGeoJSON, output.FormatJSON, output.FormatMVT} {
		formatter, err := output.NewFormatter(&output.FormatterConfig{
			Format:           f,
			Pretty:           cfg.Output.Pretty,
			CoordinateSystem: cfg.Output.CoordinateSystem,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s formatter: %w", f, err)
		}
		formatters[string(f)] = formatter
	}
	formatters["pbf"] = formatters[string(output.FormatMVT)]

	return &Server{
		renderer:   renderer,
		cache:      c,
		cfg:        cfg,
		log:        logger.L(),
		formatters: formatters,
	}, nil
}

// Handler returns the routed handler wrapped with access logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(TilePrefix, s.handleTile)
	mux.Handle(s.cfg.Server.MetricsPath, metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})

	return logger.AccessMiddleware(s.log)(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Address,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("tile server listening", "addr", srv.Addr, "annotations", s.renderer.Source().Len())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down tile server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	coord, ext, err := tile.ParseTilePath(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	formatter, ok := s.formatters[ext]
	if !ok {
		http.Error(w, fmt.Sprintf("unsupported tile format: %s", ext), http.StatusBadRequest)
		return
	}

	key := cache.Key(s.cfg.Cache.KeyPrefix, coord.ID(), ext)
	if data, hit := s.cached(r.Context(), key); hit {
		metrics.CacheHitsTotal.Inc()
		s.respond(w, formatter, data)
		return
	}
	if s.cache != nil {
		metrics.CacheMissesTotal.Inc()
	}

	processed, err := s.renderer.Render(r.Context(), coord)
	if err != nil {
		status := http.StatusInternalServerError
		if internal.ErrorCodeOf(err) == internal.ErrorCodeValidation {
			status = http.StatusBadRequest
		}
		s.log.Warn("tile render failed", "tile", coord.String(), "error", err)
		http.Error(w, err.Error(), status)
		return
	}

	var data []byte
	if !processed.Metadata.Empty {
		data, err = formatter.Format(processed)
		if err != nil {
			s.log.Error("tile format failed", "tile", coord.String(), "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), key, data); err != nil {
			s.log.Warn("tile cache store failed", "key", key, "error", err)
		}
	}

	s.respond(w, formatter, data)
}

// cached looks a tile up in the cache. Cache errors count as misses.
func (s *Server) cached(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("tile cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	return data, ok
}

// respond writes an encoded tile. An empty payload is an empty tile.
func (s *Server) respond(w http.ResponseWriter, formatter output.Formatter, data []byte) {
	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", formatter.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
