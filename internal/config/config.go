package config

import (
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Limits    LimitsConfig    `yaml:"limits"`
	Manifest  ManifestConfig  `yaml:"manifest"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds server settings
type ServerConfig struct {
	HTTPAddr   string `yaml:"http_addr"`
	TrustProxy bool   `yaml:"trust_proxy"`
}

// StorageConfig holds storage settings
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// LimitsConfig bounds decompression output
type LimitsConfig struct {
	Ratio     uint64 `yaml:"ratio"`
	Overhead  uint64 `yaml:"overhead"`
	MaxMemory uint64 `yaml:"max_memory"` // 0 disables the absolute cap
}

// ManifestConfig holds directory indexing settings
type ManifestConfig struct {
	Workers   int `yaml:"workers"` // 0 means runtime.NumCPU()
	ChunkSize int `yaml:"chunk_size"`
}

// DispatchConfig masks processor capabilities from implementation selection
type DispatchConfig struct {
	Disable []string `yaml:"disable"`
}

// RateLimitConfig limits bytes accepted by the checksum endpoint
type RateLimitConfig struct {
	Capacity   float64 `yaml:"capacity"`
	RefillRate float64 `yaml:"refill_rate"` // bytes per second, 0 disables limiting
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: ":8080",
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Limits: LimitsConfig{
			Ratio:     2000,
			Overhead:  4096,
			MaxMemory: 1 << 30, // 1GB
		},
		Manifest: ManifestConfig{
			Workers:   0,
			ChunkSize: 64 * 1024, // 64KB
		},
		Dispatch: DispatchConfig{
			Disable: []string{},
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads config from file or returns default
func LoadOrDefault(path string) *Config {
	if path == "" {
		return Default()
	}

	cfg, err := Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to load config, using defaults")
		return Default()
	}

	return cfg
}

// Validate rejects settings the rest of the program cannot run with
func (c *Config) Validate() error {
	if c.Limits.Ratio == 0 {
		return errors.New("limits.ratio must be positive")
	}
	if c.Manifest.ChunkSize < 1 {
		return errors.Newf("manifest.chunk_size must be at least 1, got %d", c.Manifest.ChunkSize)
	}
	if c.Manifest.Workers < 0 {
		return errors.Newf("manifest.workers must not be negative, got %d", c.Manifest.Workers)
	}
	if c.RateLimit.Capacity < 0 || c.RateLimit.RefillRate < 0 {
		return errors.New("rate_limit values must not be negative")
	}
	return nil
}

// ManifestWorkers resolves the configured worker count
func (c *Config) ManifestWorkers() int {
	if c.Manifest.Workers > 0 {
		return c.Manifest.Workers
	}
	return runtime.NumCPU()
}
