package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "POLICYLAB_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the runtime configuration of the policylab binary.
// Precedence, lowest first: defaults, YAML file, environment, command-line flags.
type Config struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"` // text or json

	// CatalogDir holds extra simulation documents loaded next to the built-in ones.
	CatalogDir string `yaml:"catalog_dir" env:"CATALOG_DIR"`

	Store StoreConfig `yaml:"store" envPrefix:"STORE_"`
	HTTP  HTTPConfig  `yaml:"http" envPrefix:"HTTP_"`
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"`

	// Prefix is prepended to every session key.
	Prefix string `yaml:"prefix" env:"PREFIX"`

	Dir        string      `yaml:"dir" env:"DIR"`
	SQLitePath string      `yaml:"sqlite_path" env:"SQLITE_PATH"`
	Redis      RedisConfig `yaml:"redis" envPrefix:"REDIS_"`

	// EncryptionKey is a hex encoded AES-256 key. Sessions are stored in clear when empty.
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	// FallbackKeys are older hex keys still accepted for reading.
	FallbackKeys []string `yaml:"fallback_keys" env:"FALLBACK_KEYS" envSeparator:","`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr    string `yaml:"addr" env:"ADDR"`
	Metrics bool   `yaml:"metrics" env:"METRICS"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Store: StoreConfig{
			Backend:    BackendFile,
			Dir:        ".policylab/sessions",
			SQLitePath: ".policylab/sessions.db",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "policylab:",
			},
		},
		HTTP: HTTPConfig{
			Addr:    ":8080",
			Metrics: true,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped when
// path is empty) and POLICYLAB_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrUnknownBackend is returned for store backends other than memory, file, redis and sqlite.
var ErrUnknownBackend = errors.New("unknown store backend")

// Validate checks the values that cannot be caught by parsing alone.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Store.Backend)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := decodeKey(c.Store.EncryptionKey); err != nil {
			return fmt.Errorf("store.encryption_key: %w", err)
		}
	}
	for i, k := range c.Store.FallbackKeys {
		if _, err := decodeKey(k); err != nil {
			return fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
	}
	return nil
}
