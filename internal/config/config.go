// Package config loads lenslink settings from ~/.lenslink/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds the lenslink configuration.
type Config struct {
	Port            string        `yaml:"port" json:"port"`
	Baud            int           `yaml:"baud" json:"baud"`
	MTU             int           `yaml:"mtu" json:"mtu"`
	ResponseTimeout time.Duration `yaml:"response_timeout" json:"response_timeout"`
	ChunkRetries    int           `yaml:"chunk_retries" json:"chunk_retries"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	OutputFormat    string        `yaml:"output_format" json:"output_format"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Baud:            115200,
		MTU:             512,
		ResponseTimeout: 5 * time.Second,
		ChunkRetries:    1,
		LogLevel:        "info",
		OutputFormat:    "table",
	}
}

// DefaultPath returns the default config file path: ~/.lenslink/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".lenslink", "config.yaml")
	}
	return filepath.Join(home, ".lenslink", "config.yaml")
}

// Load reads the configuration from the given YAML file path.
// If the file does not exist, it returns the defaults with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.MTU < 23 {
		return fmt.Errorf("mtu must be at least 23, got %d", c.MTU)
	}
	if c.ResponseTimeout <= 0 {
		return fmt.Errorf("response_timeout must be positive, got %s", c.ResponseTimeout)
	}
	if c.ChunkRetries < 0 {
		return fmt.Errorf("chunk_retries must not be negative, got %d", c.ChunkRetries)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.OutputFormat) {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output_format %q", c.OutputFormat)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return lvl, nil
}
