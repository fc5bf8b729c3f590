// Package config handles promptforge configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/promptforge/internal/errors"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// GeneratorConfig contains settings for the hosted generation model.
type GeneratorConfig struct {
	Model             string `yaml:"model,omitempty"`
	BaseURL           string `yaml:"base_url,omitempty"`
	RequestsPerMinute int    `yaml:"requests_per_minute,omitempty"`
	Timeout           string `yaml:"timeout,omitempty"` // e.g., "120s"
}

// OptimizerConfig contains meta-optimizer settings.
type OptimizerConfig struct {
	MaxIterations    int     `yaml:"max_iterations"`
	QualityThreshold float64 `yaml:"quality_threshold"`
}

// DebugConfig contains debug refiner settings.
type DebugConfig struct {
	MaxIterations int    `yaml:"max_iterations"`
	Execute       *bool  `yaml:"execute,omitempty"` // Run candidates through the interpreter (default: true)
	ExecTimeout   string `yaml:"exec_timeout,omitempty"`
}

// CacheConfig contains cache settings.
type CacheConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"` // default: true
	Backend  string `yaml:"backend"`
	Capacity int    `yaml:"capacity"`
}

// ExamplesConfig points at an optional example bank.
type ExamplesConfig struct {
	File string `yaml:"file,omitempty"`
}

// ValidatorConfig contains constraint validator settings.
type ValidatorConfig struct {
	ModelAssisted bool `yaml:"model_assisted,omitempty"`
}

// Config represents the promptforge configuration file.
type Config struct {
	Version int `yaml:"version"`

	Generator GeneratorConfig `yaml:"generator,omitempty"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Debug     DebugConfig     `yaml:"debug"`
	Cache     CacheConfig     `yaml:"cache"`
	Examples  ExamplesConfig  `yaml:"examples,omitempty"`
	Validator ValidatorConfig `yaml:"validator,omitempty"`
}

// Default values.
const (
	DefaultVersion           = 1
	DefaultMaxIterations     = 3
	DefaultQualityThreshold  = 1.0
	DefaultDebugIterations   = 3
	DefaultExecTimeout       = "10s"
	DefaultGeneratorTimeout  = "120s"
	DefaultCacheBackend      = BackendFile
	DefaultCacheCapacity     = 1024
	DefaultRequestsPerMinute = 50
)

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates config from the default location.
func Load() (*Config, error) {
	paths := NewPaths()
	return LoadFrom(paths.ConfigFile)
}

// LoadFrom reads and validates config from a specific path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(errors.ErrConfigInvalid, "failed to read config", "", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "failed to parse config YAML", "Check config syntax", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault reads config from path, falling back to defaults when the
// file does not exist. Any other failure is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadFrom(path)
	if errors.IsCode(err, errors.ErrConfigNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// SaveTo writes config to a specific path.
func SaveTo(cfg *Config, path string) error {
	cfg.applyDefaults()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, "failed to marshal config", "", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, "failed to create config directory", "", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks config for valid values.
func (c *Config) Validate() error {
	if c.Optimizer.MaxIterations < 1 {
		return errors.ConfigInvalid("optimizer.max_iterations must be at least 1")
	}
	if c.Optimizer.QualityThreshold <= 0 || c.Optimizer.QualityThreshold > 1 {
		return errors.ConfigInvalid("optimizer.quality_threshold must be in (0, 1]")
	}
	if c.Debug.MaxIterations < 1 {
		return errors.ConfigInvalid("debug.max_iterations must be at least 1")
	}
	if c.Cache.Capacity < 1 {
		return errors.ConfigInvalid("cache.capacity must be at least 1")
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	default:
		return errors.ConfigInvalid("cache.backend must be one of memory, file, sqlite")
	}

	if c.Generator.RequestsPerMinute < 0 {
		return errors.ConfigInvalid("generator.requests_per_minute must not be negative")
	}
	if _, err := time.ParseDuration(c.Generator.Timeout); err != nil {
		return errors.ConfigInvalid("invalid generator.timeout format, use Go duration format (e.g., 120s)")
	}
	if _, err := time.ParseDuration(c.Debug.ExecTimeout); err != nil {
		return errors.ConfigInvalid("invalid debug.exec_timeout format, use Go duration format (e.g., 10s)")
	}

	return nil
}

// applyDefaults sets default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = DefaultVersion
	}
	if c.Generator.RequestsPerMinute == 0 {
		c.Generator.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.Generator.Timeout == "" {
		c.Generator.Timeout = DefaultGeneratorTimeout
	}
	if c.Optimizer.MaxIterations == 0 {
		c.Optimizer.MaxIterations = DefaultMaxIterations
	}
	if c.Optimizer.QualityThreshold == 0 {
		c.Optimizer.QualityThreshold = DefaultQualityThreshold
	}
	if c.Debug.MaxIterations == 0 {
		c.Debug.MaxIterations = DefaultDebugIterations
	}
	if c.Debug.Execute == nil {
		c.Debug.Execute = boolPtr(true)
	}
	if c.Debug.ExecTimeout == "" {
		c.Debug.ExecTimeout = DefaultExecTimeout
	}
	if c.Cache.Enabled == nil {
		c.Cache.Enabled = boolPtr(true)
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = DefaultCacheCapacity
	}
}

// TimeoutDuration returns the generator timeout as a time.Duration.
func (g *GeneratorConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultGeneratorTimeout)
	}
	return d
}

// ExecTimeoutDuration returns the executor timeout as a time.Duration.
func (d *DebugConfig) ExecTimeoutDuration() time.Duration {
	t, err := time.ParseDuration(d.ExecTimeout)
	if err != nil {
		t, _ = time.ParseDuration(DefaultExecTimeout)
	}
	return t
}

// ExecuteEnabled reports whether debug candidates are executed.
func (d *DebugConfig) ExecuteEnabled() bool {
	return d.Execute == nil || *d.Execute
}

// IsEnabled reports whether caching is on.
func (c *CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Exists checks if a config file exists at the default location.
func Exists() bool {
	paths := NewPaths()
	_, err := os.Stat(paths.ConfigFile)
	return err == nil
}

func boolPtr(b bool) *bool { return &b }
