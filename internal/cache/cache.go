// internal/cache/cache.go - Encoded tile cache
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/annotation_tiler/internal/config"
	"github.com/valpere/annotation_tiler/pkg/annotation"
)

// Cache stores encoded tiles by key. Get reports a miss with ok == false
// and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
	Close() error
}

// Key builds the cache key of an encoded tile
func Key(prefix string, id annotation.TileID, format string) string {
	return fmt.Sprintf("%s%d/%d/%d.%s", prefix, id.Z, id.X, id.Y, format)
}

// New creates the cache selected by configuration. The "none" type returns
// a nil cache.
func New(cfg *config.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryCache(cfg.MaxEntries), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
