// Package config loads server configuration from defaults, an optional YAML
// file, a .env file and BOOKSHELF_* environment variables, in that order of
// increasing precedence.
package config

import (
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig       `koanf:"app"`
	Logger    LoggerConfig    `koanf:"logger"`
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Signing   SigningConfig   `koanf:"signing"`
	Cover     CoverConfig     `koanf:"cover"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Watcher   WatcherConfig   `koanf:"watcher"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production test"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json pretty"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `koanf:"port" validate:"min=1,max=65535"`
	Host         string        `koanf:"host"`
	PublicURL    string        `koanf:"public_url" validate:"omitempty,url"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"min=0"`
	CORSOrigins  []string      `koanf:"cors_origins"`
}

// StorageConfig locates the metadata database and the object root.
type StorageConfig struct {
	DataPath     string `koanf:"data_path" validate:"required"`
	ObjectRoot   string `koanf:"object_root" validate:"required"`
	BooksPrefix  string `koanf:"books_prefix" validate:"required,endswith=/"`
	CoversPrefix string `koanf:"covers_prefix" validate:"required,endswith=/"`
}

// SigningConfig controls signed object URLs.
type SigningConfig struct {
	// KeyPath holds the hex PASETO v4 key; generated on first start when missing.
	KeyPath   string        `koanf:"key_path"`
	CoverTTL  time.Duration `koanf:"cover_ttl" validate:"gt=0"`
	SourceTTL time.Duration `koanf:"source_ttl" validate:"gt=0"`
}

// CoverConfig controls cover rendering and encoding.
type CoverConfig struct {
	Width         int           `koanf:"width" validate:"gt=0"`
	Height        int           `koanf:"height" validate:"gt=0"`
	DPI           float64       `koanf:"dpi" validate:"gt=0"`
	JPEGQuality   int           `koanf:"jpeg_quality" validate:"min=1,max=100"`
	CacheControl  string        `koanf:"cache_control" validate:"required"`
	RenderTimeout time.Duration `koanf:"render_timeout" validate:"gt=0"`
	PdftoppmPaths []string      `koanf:"pdftoppm_paths"`
	PDFiumWorkers int           `koanf:"pdfium_workers" validate:"min=0"`
}

// RateLimitConfig limits force-extract requests per client.
type RateLimitConfig struct {
	ExtractRPS   float64 `koanf:"extract_rps" validate:"gt=0"`
	ExtractBurst int     `koanf:"extract_burst" validate:"gt=0"`
}

// WatcherConfig controls cataloging of files dropped into the books directory.
type WatcherConfig struct {
	Enabled     bool          `koanf:"enabled"`
	SettleDelay time.Duration `koanf:"settle_delay" validate:"min=0"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
