// Package config loads the harness configuration from the run root's
// runner.yaml. The file is also the sentinel that marks a directory as a
// fixture root, so it must exist even when it is empty.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lattice-substrate/joml-conformance/logger"
	"github.com/lattice-substrate/joml-conformance/runerr"
)

// FileName is the sentinel and configuration file expected at the run root.
const FileName = "runner.yaml"

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds the effective harness settings. A zero Timeout lets the
// subject run until it exits.
type Config struct {
	Timeout     time.Duration
	Jobs        int
	LogLevel    string
	Color       string
	Env         map[string]string
	SummaryJSON string
	ReportHTML  string
	HistoryDB   string
	Verbose     bool
}

// fileConfig mirrors runner.yaml. Timeout is a string so that Go duration
// syntax can be used.
type fileConfig struct {
	Timeout     *string           `yaml:"timeout"`
	Jobs        *int              `yaml:"jobs"`
	LogLevel    *string           `yaml:"log_level"`
	Color       *string           `yaml:"color"`
	Env         map[string]string `yaml:"env"`
	SummaryJSON *string           `yaml:"summary_json"`
	ReportHTML  *string           `yaml:"report_html"`
	HistoryDB   *string           `yaml:"history_db"`
}

// Default returns the configuration used when runner.yaml is empty.
func Default() *Config {
	return &Config{
		Jobs:     1,
		LogLevel: "info",
		Color:    ColorAuto,
	}
}

// Load reads <root>/runner.yaml and merges it over the defaults. A missing
// sentinel is a WRONG_DIRECTORY error; malformed content, unknown keys or
// invalid values are INVALID_CONFIG errors.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, runerr.New(runerr.WrongDirectory, root,
				"must be run from the tests directory ("+FileName+" not found)")
		}
		return nil, runerr.Wrap(runerr.InternalIO, path, "read config", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, runerr.Wrap(runerr.InvalidConfig, path, "invalid configuration", err)
	}
	return cfg, nil
}

// Parse decodes runner.yaml content and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}

	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", *fc.Timeout, err)
		}
		cfg.Timeout = d
	}
	if fc.Jobs != nil {
		cfg.Jobs = *fc.Jobs
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.Color != nil {
		cfg.Color = *fc.Color
	}
	if fc.Env != nil {
		cfg.Env = fc.Env
	}
	if fc.SummaryJSON != nil {
		cfg.SummaryJSON = *fc.SummaryJSON
	}
	if fc.ReportHTML != nil {
		cfg.ReportHTML = *fc.ReportHTML
	}
	if fc.HistoryDB != nil {
		cfg.HistoryDB = *fc.HistoryDB
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overrides carries command-line values. Nil fields leave the file value
// in place.
type Overrides struct {
	Timeout     *time.Duration
	Jobs        *int
	LogLevel    *string
	Color       *string
	SummaryJSON *string
	ReportHTML  *string
	HistoryDB   *string
	Verbose     *bool
}

// Merge applies o over c and revalidates.
func (c *Config) Merge(o Overrides) error {
	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
	if o.Jobs != nil {
		c.Jobs = *o.Jobs
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.Color != nil {
		c.Color = *o.Color
	}
	if o.SummaryJSON != nil {
		c.SummaryJSON = *o.SummaryJSON
	}
	if o.ReportHTML != nil {
		c.ReportHTML = *o.ReportHTML
	}
	if o.HistoryDB != nil {
		c.HistoryDB = *o.HistoryDB
	}
	if o.Verbose != nil {
		c.Verbose = *o.Verbose
	}
	if err := c.Validate(); err != nil {
		return runerr.Wrap(runerr.CLIUsage, "", "invalid flag value", err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be >= 1, got %d", c.Jobs)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color %q, must be one of: auto, always, never", c.Color)
	}
	for k := range c.Env {
		if k == "" {
			return errors.New("env keys must not be empty")
		}
	}
	return nil
}

// Resolve makes relative artifact paths relative to root.
func (c *Config) Resolve(root string) {
	for _, p := range []*string{&c.SummaryJSON, &c.ReportHTML, &c.HistoryDB} {
		if *p != "" && *p != ":memory:" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
}
