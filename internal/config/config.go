// internal/config/config.go - Configuration management
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/annotation_tiler/internal"
)

// Config represents the complete application configuration
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Tiling  TilingConfig  `mapstructure:"tiling"`
	Output  OutputConfig  `mapstructure:"output"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Server  ServerConfig  `mapstructure:"server"`
	Network NetworkConfig `mapstructure:"network"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig determines where annotations are loaded from
type SourceConfig struct {
	Type       string            `mapstructure:"type"`
	Path       string            `mapstructure:"path"`
	URL        string            `mapstructure:"url"`
	DSN        string            `mapstructure:"dsn"`
	Query      string            `mapstructure:"query"`
	Headers    map[string]string `mapstructure:"headers"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	MaxRetries int               `mapstructure:"max_retries"`
	AreaTags   []string          `mapstructure:"area_tags"`
}

// TilingConfig contains tile pyramid configuration
type TilingConfig struct {
	MaxZoom int `mapstructure:"max_zoom"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format           string `mapstructure:"format"`
	Directory        string `mapstructure:"directory"`
	Filename         string `mapstructure:"filename"`
	Compression      bool   `mapstructure:"compression"`
	Pretty           bool   `mapstructure:"pretty"`
	Stdout           bool   `mapstructure:"stdout"`
	CoordinateSystem string `mapstructure:"coordinate_system"`
}

// BatchConfig contains batch processing configuration
type BatchConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FailOnError bool          `mapstructure:"fail_on_error"`
	SkipEmpty   bool          `mapstructure:"skip_empty"`
}

// CacheConfig contains encoded tile cache configuration
type CacheConfig struct {
	Type          string        `mapstructure:"type"`
	MaxEntries    int           `mapstructure:"max_entries"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
}

// ServerConfig contains tile server configuration
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MetricsPath  string        `mapstructure:"metrics_path"`
}

// NetworkConfig contains network-related configuration
type NetworkConfig struct {
	ProxyURL         string        `mapstructure:"proxy_url"`
	UserAgent        string        `mapstructure:"user_agent"`
	KeepAlive        time.Duration `mapstructure:"keep_alive"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	IdleConnTimeout  time.Duration `mapstructure:"idle_conn_timeout"`
	DisableKeepAlive bool          `mapstructure:"disable_keep_alive"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Verbose  bool   `mapstructure:"verbose"`
	Progress bool   `mapstructure:"progress"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from a viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	// Set default values
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.type", string(internal.SourceTypeAuto))
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.query", "SELECT id, ST_AsGeoJSON(geom), max_zoom FROM annotations")
	v.SetDefault("source.area_tags", []string{"area", "building", "landuse", "natural", "leisure", "amenity"})

	// Tiling defaults
	v.SetDefault("tiling.max_zoom", 16)

	// Output defaults
	v.SetDefault("output.format", "geojson")
	v.SetDefault("output.pretty", true)
	v.SetDefault("output.compression", false)
	v.SetDefault("output.stdout", true)
	v.SetDefault("output.coordinate_system", "wgs84")

	// Batch defaults
	v.SetDefault("batch.concurrency", 10)
	v.SetDefault("batch.timeout", 5*time.Minute)
	v.SetDefault("batch.fail_on_error", false)
	v.SetDefault("batch.skip_empty", true)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "annotile:")

	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.metrics_path", "/metrics")

	// Network defaults
	v.SetDefault("network.user_agent", "AnnotationTiler/1.0")
	v.SetDefault("network.keep_alive", 30*time.Second)
	v.SetDefault("network.max_idle_conns", 100)
	v.SetDefault("network.idle_conn_timeout", 90*time.Second)
	v.SetDefault("network.disable_keep_alive", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.verbose", false)
	v.SetDefault("logging.progress", true)
}

// DetermineSourceType resolves the configured source type. With "auto" the
// type is derived from the configured DSN, URL or file extension.
func (c *Config) DetermineSourceType() internal.SourceType {
	switch t := internal.SourceType(strings.ToLower(c.Source.Type)); t {
	case internal.SourceTypeGeoJSON, internal.SourceTypeHTTP, internal.SourceTypeOSM, internal.SourceTypePostgres:
		return t
	}

	if c.Source.DSN != "" {
		return internal.SourceTypePostgres
	}
	if c.Source.URL != "" {
		return internal.SourceTypeHTTP
	}

	location := c.Source.Path
	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return internal.SourceTypeHTTP
	}
	if strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://") {
		return internal.SourceTypePostgres
	}
	if strings.HasSuffix(strings.ToLower(location), ".pbf") {
		return internal.SourceTypeOSM
	}
	return internal.SourceTypeGeoJSON
}

// MaxZoom returns the configured maximum zoom as a tile zoom level
func (c *Config) MaxZoom() uint8 {
	return uint8(c.Tiling.MaxZoom)
}
