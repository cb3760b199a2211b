// Package config loads ctxcache CLI settings from a YAML file and the environment.
//
// Precedence, lowest to highest: built-in defaults, the config file,
// CTXCACHE_* environment variables, command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/gophersatwork/ctxcache"
	"github.com/gophersatwork/ctxcache/internal/logging"
)

// DefaultFilename is the config file looked up in the working directory.
const DefaultFilename = ".ctxcache.yaml"

// CurrentVersion is the config file schema version this build understands.
const CurrentVersion = 1

// Environment overrides.
const (
	EnvCacheVersion = "CTXCACHE_CACHE_VERSION"
	EnvFormat       = "CTXCACHE_FORMAT"
	EnvCost         = "CTXCACHE_COST"
	EnvLogLevel     = "CTXCACHE_LOG_LEVEL"
	EnvLogFormat    = "CTXCACHE_LOG_FORMAT"
)

// Output formats for resolve.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Config represents the complete CLI configuration.
type Config struct {
	Version int           `yaml:"version"`
	Build   BuildConfig   `yaml:"build"`
	Resolve ResolveConfig `yaml:"resolve"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig configures cache builds.
type BuildConfig struct {
	// CacheVersion is the version tag written into manifests.
	CacheVersion string `yaml:"cache_version"`
	// Extensions lists the file extensions picked up from the sources tree.
	Extensions []string `yaml:"extensions"`
	// Exclude lists base-name globs skipped during discovery.
	Exclude []string `yaml:"exclude"`
}

// ResolveConfig configures selections.
type ResolveConfig struct {
	// Format is json or pretty.
	Format string `yaml:"format"`
	// Cost is the budget unit: bytes or tokens.
	Cost string `yaml:"cost"`
	// Concurrency bounds parallel content reads; 0 means GOMAXPROCS.
	Concurrency int `yaml:"concurrency"`
}

// LoggingConfig configures the stderr logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	logDefaults := logging.DefaultConfig()
	return &Config{
		Version: CurrentVersion,
		Build: BuildConfig{
			CacheVersion: ctxcache.DefaultCacheVersion,
			Extensions:   []string{".md"},
		},
		Resolve: ResolveConfig{
			Format: FormatJSON,
			Cost:   ctxcache.UnitBytes,
		},
		Logging: LoggingConfig{
			Level:  logDefaults.Level,
			Format: logDefaults.Format,
		},
	}
}

// Load reads path on fs over the defaults and applies environment overrides.
// A missing file is not an error when path is the default file name;
// an explicitly named file must exist.
func Load(fsys afero.Fs, path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFilename
	}

	if err := cfg.loadYAML(fsys, path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(fsys afero.Fs, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return err
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays the non-zero fields of other.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Build.CacheVersion != "" {
		c.Build.CacheVersion = other.Build.CacheVersion
	}
	if len(other.Build.Extensions) > 0 {
		c.Build.Extensions = other.Build.Extensions
	}
	if len(other.Build.Exclude) > 0 {
		c.Build.Exclude = other.Build.Exclude
	}
	if other.Resolve.Format != "" {
		c.Resolve.Format = other.Resolve.Format
	}
	if other.Resolve.Cost != "" {
		c.Resolve.Cost = other.Resolve.Cost
	}
	if other.Resolve.Concurrency != 0 {
		c.Resolve.Concurrency = other.Resolve.Concurrency
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvCacheVersion); v != "" {
		c.Build.CacheVersion = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		c.Resolve.Format = strings.ToLower(v)
	}
	if v := os.Getenv(EnvCost); v != "" {
		c.Resolve.Cost = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks every field that has a closed set of values.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version %d (want %d)", c.Version, CurrentVersion)
	}
	if err := (ctxcache.BuildConfig{Version: c.Build.CacheVersion}).Validate(); err != nil {
		return err
	}
	for _, ext := range c.Build.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with '.'", ext)
		}
	}
	for _, pattern := range c.Build.Exclude {
		if _, err := filepath.Match(pattern, "x"); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}
	switch c.Resolve.Format {
	case FormatJSON, FormatPretty:
	default:
		return fmt.Errorf("unknown format %q (want json or pretty)", c.Resolve.Format)
	}
	switch c.Resolve.Cost {
	case ctxcache.UnitBytes, ctxcache.UnitTokens:
	default:
		return fmt.Errorf("unknown cost unit %q (want bytes or tokens)", c.Resolve.Cost)
	}
	if c.Resolve.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// YAML renders the configuration as a config file.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteYAML writes the configuration to path on fs.
func (c *Config) WriteYAML(fsys afero.Fs, path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, data, 0o644)
}
