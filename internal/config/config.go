// Package config loads the textry YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Pacing delay bounds. Values outside the range are clamped.
const (
	DefaultSendDelay = 2 * time.Second
	MinSendDelay     = 500 * time.Millisecond
	MaxSendDelay     = 5 * time.Second
)

// Config is the main configuration structure
type Config struct {
	API       APIConfig       `yaml:"api"`
	Send      SendConfig      `yaml:"send"`
	Transport TransportConfig `yaml:"transport"`
	Storage   StorageConfig   `yaml:"storage"`
	Contacts  ContactsConfig  `yaml:"contacts"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	APIKey       string        `yaml:"api_key"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// SendConfig contains send session settings
type SendConfig struct {
	// Delay is the pacing interval between consecutive sends.
	Delay time.Duration `yaml:"delay"`
}

// TransportConfig contains SMS gateway settings
type TransportConfig struct {
	// Mode is "gateway" or "sandbox".
	Mode     string        `yaml:"mode"`
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ContactsConfig contains address-book source settings
type ContactsConfig struct {
	File string `yaml:"file"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied, used when
// no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 30 * time.Second
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}

	if c.Send.Delay == 0 {
		c.Send.Delay = DefaultSendDelay
	}
	if c.Send.Delay < MinSendDelay {
		c.Send.Delay = MinSendDelay
	}
	if c.Send.Delay > MaxSendDelay {
		c.Send.Delay = MaxSendDelay
	}

	if c.Transport.Mode == "" {
		c.Transport.Mode = "sandbox"
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = 30 * time.Second
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/textry/textry.db"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validModes := map[string]bool{"gateway": true, "sandbox": true}
	if !validModes[c.Transport.Mode] {
		return fmt.Errorf("invalid transport.mode: %s (must be gateway or sandbox)", c.Transport.Mode)
	}
	if c.Transport.Mode == "gateway" && c.Transport.Endpoint == "" {
		return fmt.Errorf("transport.endpoint is required when mode is gateway")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}
