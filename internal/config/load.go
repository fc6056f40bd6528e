package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. BOOKSHELF_SERVER_PORT.
const EnvPrefix = "BOOKSHELF_"

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/bookshelf/config.yaml",
}

// sliceKeys are comma-separated when supplied through the environment.
var sliceKeys = []string{"server.cors_origins", "cover.pdftoppm_paths"}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Storage: StorageConfig{
			DataPath:     "./data",
			ObjectRoot:   "./data/objects",
			BooksPrefix:  "books/",
			CoversPrefix: "covers/",
		},
		Signing: SigningConfig{
			CoverTTL:  24 * time.Hour,
			SourceTTL: time.Hour,
		},
		Cover: CoverConfig{
			Width:         300,
			Height:        450,
			DPI:           150,
			JPEGQuality:   85,
			CacheControl:  "max-age=31536000",
			RenderTimeout: 30 * time.Second,
			PdftoppmPaths: []string{
				"/usr/bin/pdftoppm",
				"/usr/local/bin/pdftoppm",
				"/opt/homebrew/bin/pdftoppm",
				"/opt/bin/pdftoppm",
			},
			PDFiumWorkers: 1,
		},
		RateLimit: RateLimitConfig{
			ExtractRPS:   0.5,
			ExtractBurst: 3,
		},
		Watcher: WatcherConfig{
			Enabled:     true,
			SettleDelay: 2 * time.Second,
		},
	}
}

// Options tunes Load, mostly for tests.
type Options struct {
	// ConfigFile skips the search and loads this YAML file.
	ConfigFile string
	// EnvFile is loaded with godotenv before reading the environment.
	EnvFile string
}

// LoadConfig loads configuration using the default search paths and ".env".
func LoadConfig() (*Config, error) {
	return Load(Options{EnvFile: ".env"})
}

// Load builds a Config from defaults, file and environment, then validates it.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := opts.ConfigFile
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if opts.EnvFile != "" {
		// Variables already set in the process environment win over the file.
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for _, key := range sliceKeys {
		if raw, ok := k.Get(key).(string); ok {
			if err := k.Set(key, splitList(raw)); err != nil {
				return nil, fmt.Errorf("split %s: %w", key, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("koanf"); name != "" {
			return name
		}
		return fld.Name
	})
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SigningKeyPath returns the configured key path or one inside the data directory.
func (c *Config) SigningKeyPath() string {
	if c.Signing.KeyPath != "" {
		return c.Signing.KeyPath
	}
	return filepath.Join(c.Storage.DataPath, "signing.key")
}

// envKey maps BOOKSHELF_SERVER_READ_TIMEOUT to server.read_timeout.
// Only the first underscore separates the section.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, found := strings.Cut(s, "_")
	if !found {
		return section
	}
	return section + "." + rest
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
