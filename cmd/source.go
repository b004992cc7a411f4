// cmd/source.go - Shared annotation loading for commands
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/annotation_tiler/internal/config"
	"github.com/valpere/annotation_tiler/internal/logger"
	"github.com/valpere/annotation_tiler/internal/source"
	"github.com/valpere/annotation_tiler/pkg/annotation"
)

// loadSource loads the configured annotations into a new source. Annotations
// the source rejects are logged and skipped.
func loadSource(ctx context.Context, cfg *config.Config) (*annotation.Source, error) {
	loader, err := source.NewLoader(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create annotation loader: %w", err)
	}

	l := logger.L()
	start := time.Now()

	src := annotation.NewSource()
	added, err := source.Populate(ctx, loader, src)
	if added == 0 && err != nil {
		return nil, fmt.Errorf("failed to load annotations: %w", err)
	}
	if err != nil {
		l.Warn("some annotations were rejected", "error", err)
	}

	l.Info("annotations loaded",
		"source", cfg.DetermineSourceType(),
		"count", added,
		"duration", time.Since(start))

	return src, nil
}
