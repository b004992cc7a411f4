// internal/config/validation.go - Configuration validation
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/valpere/annotation_tiler/internal"
)

// MaxZoomLimit is the deepest zoom an annotation can be tiled to
const MaxZoomLimit = 24

// Validate validates the configuration structure and values
func Validate(config *Config) error {
	if err := validateSource(&config.Source); err != nil {
		return fmt.Errorf("source configuration invalid: %w", err)
	}

	if err := validateTiling(&config.Tiling); err != nil {
		return fmt.Errorf("tiling configuration invalid: %w", err)
	}

	if err := validateOutput(&config.Output); err != nil {
		return fmt.Errorf("output configuration invalid: %w", err)
	}

	if err := validateBatch(&config.Batch); err != nil {
		return fmt.Errorf("batch configuration invalid: %w", err)
	}

	if err := validateCache(&config.Cache); err != nil {
		return fmt.Errorf("cache configuration invalid: %w", err)
	}

	if err := validateServer(&config.Server); err != nil {
		return fmt.Errorf("server configuration invalid: %w", err)
	}

	if err := validateNetwork(&config.Network); err != nil {
		return fmt.Errorf("network configuration invalid: %w", err)
	}

	if err := validateLogging(&config.Logging); err != nil {
		return fmt.Errorf("logging configuration invalid: %w", err)
	}

	return nil
}

// validateSource validates annotation source parameters
func validateSource(config *SourceConfig) error {
	validTypes := []string{
		string(internal.SourceTypeAuto),
		string(internal.SourceTypeGeoJSON),
		string(internal.SourceTypeHTTP),
		string(internal.SourceTypeOSM),
		string(internal.SourceTypePostgres),
	}
	if !contains(validTypes, config.Type) {
		return fmt.Errorf("invalid type: %s, must be one of %v", config.Type, validTypes)
	}

	if config.URL != "" {
		u, err := url.Parse(config.URL)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url must use http or https, got %q", u.Scheme)
		}
	}

	if config.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// validateTiling validates tile pyramid parameters
func validateTiling(config *TilingConfig) error {
	if config.MaxZoom < 0 || config.MaxZoom > MaxZoomLimit {
		return fmt.Errorf("max_zoom must be between 0 and %d, got %d", MaxZoomLimit, config.MaxZoom)
	}
	return nil
}

// validateOutput validates output configuration parameters
func validateOutput(config *OutputConfig) error {
	validFormats := []string{"geojson", "json", "mvt"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid format: %s, must be one of %v", config.Format, validFormats)
	}

	validSystems := []string{"wgs84", "tile"}
	if !contains(validSystems, config.CoordinateSystem) {
		return fmt.Errorf("invalid coordinate_system: %s, must be one of %v", config.CoordinateSystem, validSystems)
	}

	if !config.Stdout && config.Directory == "" && config.Filename == "" {
		return fmt.Errorf("directory or filename is required when not using stdout")
	}

	return nil
}

// validateBatch validates batch processing configuration parameters
func validateBatch(config *BatchConfig) error {
	if config.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if config.Concurrency > 1000 {
		return fmt.Errorf("concurrency must not exceed 1000")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// validateCache validates tile cache parameters
func validateCache(config *CacheConfig) error {
	validTypes := []string{"none", "memory", "redis"}
	if !contains(validTypes, config.Type) {
		return fmt.Errorf("invalid type: %s, must be one of %v", config.Type, validTypes)
	}

	if strings.EqualFold(config.Type, "memory") && config.MaxEntries <= 0 {
		return fmt.Errorf("max_entries must be positive for the memory cache")
	}

	if strings.EqualFold(config.Type, "redis") && config.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required for the redis cache")
	}

	if config.TTL < 0 {
		return fmt.Errorf("ttl must be non-negative")
	}

	return nil
}

// validateServer validates tile server parameters
func validateServer(config *ServerConfig) error {
	if config.Address == "" {
		return fmt.Errorf("address is required")
	}

	if !strings.HasPrefix(config.MetricsPath, "/") {
		return fmt.Errorf("metrics_path must start with '/'")
	}

	if config.ReadTimeout < 0 || config.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}

	return nil
}

// validateNetwork validates network configuration parameters
func validateNetwork(config *NetworkConfig) error {
	if config.ProxyURL != "" {
		if _, err := url.Parse(config.ProxyURL); err != nil {
			return fmt.Errorf("invalid proxy_url: %w", err)
		}
	}

	if config.MaxIdleConns < 0 {
		return fmt.Errorf("max_idle_conns must be non-negative")
	}

	if config.UserAgent == "" {
		return fmt.Errorf("user_agent cannot be empty")
	}

	if config.KeepAlive < 0 {
		return fmt.Errorf("keep_alive must be non-negative")
	}

	if config.IdleConnTimeout < 0 {
		return fmt.Errorf("idle_conn_timeout must be non-negative")
	}

	return nil
}

// validateLogging validates logging configuration parameters
func validateLogging(config *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, config.Level) {
		return fmt.Errorf("invalid log level: %s, must be one of %v", config.Level, validLevels)
	}

	validFormats := []string{"text", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid log format: %s, must be one of %v", config.Format, validFormats)
	}

	return nil
}

// contains checks if a string slice contains a specific string (case-insensitive)
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
