// Package config holds the featkit configuration. A configuration is
// read from YAML and individual keys may then be overridden from flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/hack-pad/hackpadfs"
	"gopkg.in/yaml.v3"
)

// Keys lists the configuration keys, in documentation order.
var Keys = []string{"db", "grammar", "log", "workers", "trace"}

// Config is the featkit configuration.
type Config struct {
	// DB is the SQLite data source name.
	DB string `yaml:"db"`
	// Grammar is the path of the default feature grammar.
	Grammar string `yaml:"grammar,omitempty"`
	// Log is one of off, error, info, debug.
	Log string `yaml:"log"`
	// Workers bounds batch parsing concurrency.
	Workers int `yaml:"workers"`
	// Trace enables unification and chart tracing at debug level.
	Trace bool `yaml:"trace"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DB:      ":memory:",
		Log:     "info",
		Workers: 4,
	}
}

// Parse reads YAML over the defaults. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the configuration file at path in fsys.
func Load(fsys hackpadfs.FS, path string) (*Config, error) {
	data, err := hackpadfs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Set overrides a single key from its string form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "db":
		c.DB = value
	case "grammar":
		c.Grammar = value
	case "log":
		c.Log = value
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("workers: %w", err)
		}
		c.Workers = n
	case "trace":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		c.Trace = b
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return c.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, _, err := ParseLevel(c.Log); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseLevel maps a log flag value to a slog level. The off level
// reports enabled=false.
func ParseLevel(s string) (level slog.Level, enabled bool, err error) {
	switch s {
	case "off":
		return 0, false, nil
	case "error":
		return slog.LevelError, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "debug":
		return slog.LevelDebug, true, nil
	}
	return 0, false, fmt.Errorf("unrecognized log level %q", s)
}
