// Package config loads buildlens configuration.
//
// Sources, later ones winning:
//  1. built-in defaults
//  2. a .env file, exported into the process environment
//  3. an optional YAML file
//  4. BUILDLENS_* environment variables
//
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Config holds the tool configuration.
type Config struct {
	Settings `yaml:",inline"`

	CustomAttributes []CustomAttribute `yaml:"attributes"`
}

// Settings are the scalar options, each of which can also be set from the environment.
type Settings struct {
	// ProjectFile is the project to analyze; empty means the first project in the log.
	ProjectFile string `yaml:"project" env:"BUILDLENS_PROJECT"`
	// Format is the report format: table, json or yaml.
	Format string `yaml:"format" env:"BUILDLENS_FORMAT"`
	// Database is the SQLite file results are stored in; empty disables storage.
	Database string `yaml:"database" env:"BUILDLENS_DB"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"BUILDLENS_LOG_LEVEL"`
	// TimeZone is the location event timestamps were recorded in.
	TimeZone string `yaml:"timezone" env:"BUILDLENS_TIMEZONE"`
	// SkipInvalid turns undecodable event log lines into warnings.
	SkipInvalid bool `yaml:"skip_invalid" env:"BUILDLENS_SKIP_INVALID"`

	// OTEL enables span export of the build timeline.
	OTEL bool `yaml:"otel" env:"BUILDLENS_OTEL"`
	// TraceID is an expression producing the trace ID.
	TraceID string `yaml:"trace_id" env:"BUILDLENS_TRACE_ID"`
	// ParentID is an expression producing the parent span ID.
	ParentID string `yaml:"parent_id" env:"BUILDLENS_PARENT_ID"`
	// Where is a boolean expression selecting the reported results.
	Where string `yaml:"where" env:"BUILDLENS_WHERE"`

	// Attributes is a NAME=EXPR;NAME=EXPR list appended to CustomAttributes.
	Attributes string `yaml:"-" env:"BUILDLENS_ATTRIBUTES"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Settings: Settings{
			Format:   FormatTable,
			LogLevel: "info",
			TimeZone: "UTC",
		},
	}
}

// Load builds the configuration. path names an optional YAML file; it is an
// error for a named file to be missing. dotenv lists .env files to export
// first; when empty, ".env" in the working directory is used if present.
func Load(path string, dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(dotenv...); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg.Settings); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Attributes != "" {
		attrs, err := ParseAttributeString(cfg.Attributes)
		if err != nil {
			return nil, fmt.Errorf("invalid BUILDLENS_ATTRIBUTES: %w", err)
		}
		cfg.CustomAttributes = append(cfg.CustomAttributes, attrs...)
		cfg.Attributes = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be checked by type alone.
func (c *Config) Validate() error {
	var errs []error

	switch c.Format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		errs = append(errs, fmt.Errorf("invalid format %q: must be table, json or yaml", c.Format))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	for _, attr := range c.CustomAttributes {
		if attr.Name == "" {
			errs = append(errs, fmt.Errorf("attribute name cannot be empty"))
		}
		if attr.Expression == "" {
			errs = append(errs, fmt.Errorf("attribute %q: expression cannot be empty", attr.Name))
		}
	}

	return errors.Join(errs...)
}

// Location resolves TimeZone. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
