// Package config provides configuration management for the scidd tools. It
// handles loading, validating and saving application settings. Settings come
// from a YAML file with sensible defaults; endpoint environment variables
// take precedence over the file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/fsutil"
	"github.com/glorpus-work/scidd/pkg/resolver"
)

// Config represents the application configuration.
type Config struct {
	API   APIConfig   `yaml:"api"`
	Cache CacheConfig `yaml:"cache"`

	Settings Settings `yaml:"settings"`
}

// APIConfig selects the metadata API endpoint.
type APIConfig struct {
	Host    string        `yaml:"host,omitempty"`
	Port    int           `yaml:"port,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig selects the cache location and download behavior.
type CacheConfig struct {
	Dir string `yaml:"dir,omitempty"`

	// KeepCompressed stores downloaded payloads exactly as served instead of
	// decompressing them into the cache.
	KeepCompressed bool `yaml:"keep_compressed,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	LogLevel        string        `yaml:"log_level"` // error, warn, info, debug
}

// Configuration errors.
var (
	ErrEmptyPath  = fmt.Errorf("config path is empty")
	ErrParse      = fmt.Errorf("could not parse config file")
	ErrValidation = fmt.Errorf("invalid configuration")
)

// EnvCacheDir overrides the cache directory from the environment.
const EnvCacheDir = "SCIDD_CACHE_DIR"

const yamlIndent = 2

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host:    resolver.DefaultHost,
			Port:    resolver.DefaultPort,
			Timeout: resolver.DefaultTimeout,
		},
		Settings: Settings{
			DownloadTimeout: 10 * time.Minute,
			LogLevel:        "info",
		},
	}
}

// DefaultConfigPath returns the standard location of the config file.
func DefaultConfigPath() (string, error) {
	dir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration rather than an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving config path %s", path)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves configuration to a file, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolving config path %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(err, "could not create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(err, "could not create config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(yamlIndent)
	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "could not encode config")
	}
	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "could not replace config file")
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal config")
	}
	return data, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.API.Host == "" {
		c.API.Host = defaults.API.Host
	}
	if c.API.Port == 0 {
		c.API.Port = defaults.API.Port
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	if c.Settings.DownloadTimeout <= 0 {
		c.Settings.DownloadTimeout = defaults.Settings.DownloadTimeout
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrValidation
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return errors.Wrapf(ErrValidation, "api port %d out of range", c.API.Port)
	}
	switch c.Settings.LogLevel {
	case "error", "warn", "info", "debug":
	default:
		return errors.Wrapf(ErrValidation, "unknown log level %q", c.Settings.LogLevel)
	}
	return nil
}

// APIEndpoint returns the metadata API host and port, letting the endpoint
// environment variables override the file.
func (c *Config) APIEndpoint() (string, int) {
	return resolver.EndpointFromEnv(resolver.EnvAPIHost, resolver.EnvAPIPort, c.API.Host, c.API.Port)
}

// CacheDir returns the cache directory: the SCIDD_CACHE_DIR environment
// variable, the configured directory, or the default location, in that order.
func (c *Config) CacheDir() (string, error) {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir, nil
	}
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return fsutil.DefaultCacheDir()
}

// DecompressDownloads reports whether payloads are decompressed on the way
// into the cache.
func (c *Config) DecompressDownloads() bool {
	return !c.Cache.KeepCompressed
}
