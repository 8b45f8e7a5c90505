package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dialect is the output language for emitted shapes.
type Dialect string

const (
	DialectJS Dialect = "js"
	DialectGo Dialect = "go"
)

// CacheBackend selects where relooped results are kept between runs.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheFile   CacheBackend = "file"
	CachePebble CacheBackend = "pebble"
)

// Config holds all configuration for reloop
type Config struct {
	// Dialect used when printing relooped shapes
	Dialect Dialect `yaml:"dialect" env:"RELOOP_DIALECT"`

	// Debug records the classification trace for every function
	Debug bool `yaml:"debug" env:"RELOOP_DEBUG"`

	// Workers bounds batch concurrency; 0 means one per CPU
	Workers int `yaml:"workers" env:"RELOOP_WORKERS"`

	// Result cache settings
	CacheDir     string       `yaml:"cache_dir" env:"RELOOP_CACHE_DIR"`
	CacheSize    int          `yaml:"cache_size" env:"RELOOP_CACHE_SIZE"`
	CacheBackend CacheBackend `yaml:"cache_backend" env:"RELOOP_CACHE_BACKEND"`

	// Marker is the directive prefix, as in //reloop:enable
	Marker string `yaml:"marker" env:"RELOOP_MARKER"`

	// Logging
	Verbose  bool `yaml:"verbose" env:"RELOOP_VERBOSE"`
	JSONLogs bool `yaml:"json_logs" env:"RELOOP_JSON_LOGS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Dialect:      DialectJS,
		Debug:        false,
		Workers:      0,
		CacheDir:     defaultCacheDir(),
		CacheSize:    1000,
		CacheBackend: CacheFile,
		Marker:       "reloop",
		Verbose:      false,
		JSONLogs:     false,
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".reloop", "cache")
	}
	return filepath.Join(dir, "reloop")
}

// GlobalConfigFilePath returns the global config file path (~/.reloop/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ProjectConfigFilePath()
	}
	return filepath.Join(home, ".reloop", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.reloop/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".reloop", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.reloop/config.yaml)
// 3. Global config (~/.reloop/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigFilePath(), ProjectConfigFilePath()} {
		if err := mergeFile(cfg, path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := mergeFile(cfg, path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the keys present in path onto cfg. A missing file is
// reported with an error satisfying os.IsNotExist.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELOOP_DIALECT"); v != "" {
		cfg.Dialect = Dialect(v)
	}
	if v := os.Getenv("RELOOP_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
	if v := os.Getenv("RELOOP_WORKERS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("RELOOP_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("RELOOP_CACHE_SIZE"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheSize = i
		}
	}
	if v := os.Getenv("RELOOP_CACHE_BACKEND"); v != "" {
		cfg.CacheBackend = CacheBackend(v)
	}
	if v := os.Getenv("RELOOP_MARKER"); v != "" {
		cfg.Marker = v
	}
	if v := os.Getenv("RELOOP_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("RELOOP_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	switch c.Dialect {
	case DialectJS, DialectGo:
	default:
		return fmt.Errorf("invalid dialect: %s (must be 'js' or 'go')", c.Dialect)
	}

	switch c.CacheBackend {
	case CacheMemory:
	case CacheFile, CachePebble:
		if c.CacheDir == "" {
			return fmt.Errorf("cache_dir is required when cache_backend is %s", c.CacheBackend)
		}
	default:
		return fmt.Errorf("invalid cache_backend: %s (must be 'memory', 'file' or 'pebble')", c.CacheBackend)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive")
	}
	if c.Marker == "" {
		return fmt.Errorf("marker is required")
	}
	return nil
}

func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
