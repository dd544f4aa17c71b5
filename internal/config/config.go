// Package config loads the calculator settings from a YAML file.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// Listen is the address of the HTTP service.
	Listen string `yaml:"listen"`

	// Database is the SQLite history file used by the HTTP service.
	Database string        `yaml:"database"`
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`

	// Workers bounds concurrent evaluations of a batch.
	Workers  int    `yaml:"workers"`
	LogLevel string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Listen:   ":8080",
		Database: "my.db",
		TokenTTL: 10 * time.Minute,
		Workers:  2,
		LogLevel: "info",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document does not set.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return errors.Wrap(err, "decode yaml")
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.TokenTTL < 0 {
		return errors.Errorf("token_ttl must not be negative, got %s", c.TokenTTL)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level converts LogLevel for slog.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return l, errors.Wrapf(err, "log_level %q", c.LogLevel)
	}
	return l, nil
}
