package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iTrooz/fetch-cache/internal/fetch"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	Request RequestConfig `yaml:"request"`
	Monitor bool          `yaml:"monitor"`
	Rules   RulesConfig   `yaml:"rules"`
}

// ServerConfig contains caching proxy configuration
type ServerConfig struct {
	Port int `yaml:"port"`
}

// CacheConfig contains cache-related configuration
type CacheConfig struct {
	Folder string `yaml:"folder"`
}

// LogConfig controls the logger
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "text" or "json"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// RequestConfig holds the options applied to every outgoing request
type RequestConfig struct {
	Headers  map[string]string `yaml:"headers"`
	Delay    string            `yaml:"delay"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
}

// RulesConfig selects which proxied requests go through the cache
type RulesConfig struct {
	Mode  string      `yaml:"mode"` // "whitelist" or "blacklist"
	Rules []CacheRule `yaml:"rules"`
}

// CacheRule defines a caching rule
type CacheRule struct {
	BaseURI string   `yaml:"base_uri"`
	Methods []string `yaml:"methods"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Cache.Folder == "" {
		c.Cache.Folder = filepath.Join(os.TempDir(), "fetch-cache")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Rules.Mode == "" {
		c.Rules.Mode = "blacklist"
	}
}

// GetDelay parses and returns the artificial request delay
func (c *Config) GetDelay() (time.Duration, error) {
	if c.Request.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Request.Delay)
}

// RequestOptions converts the request block to executor options
func (c *Config) RequestOptions() (fetch.Options, error) {
	delay, err := c.GetDelay()
	if err != nil {
		return fetch.Options{}, fmt.Errorf("invalid request delay: %w", err)
	}

	opts := fetch.Options{
		Delay:   delay,
		Headers: make(map[string]string, len(c.Request.Headers)),
	}
	for k, v := range c.Request.Headers {
		opts.Headers[k] = v
	}
	if c.Request.Username != "" {
		opts.Auth = &fetch.BasicAuth{Username: c.Request.Username, Password: c.Request.Password}
	}
	return opts, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Cache.Folder == "" {
		return fmt.Errorf("cache folder is required")
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", c.Log.Format)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}

	opts, err := c.RequestOptions()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid request options: %w", err)
	}

	if c.Rules.Mode != "whitelist" && c.Rules.Mode != "blacklist" {
		return fmt.Errorf("rules mode must be 'whitelist' or 'blacklist', got: %s", c.Rules.Mode)
	}

	for i, rule := range c.Rules.Rules {
		if strings.TrimSpace(rule.BaseURI) == "" {
			return fmt.Errorf("rule %d: base_uri is required", i)
		}
	}

	return nil
}
