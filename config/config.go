// Package config loads the designscore configuration from a YAML file and
// DESIGNSCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/designscore/analyzer"
	"github.com/hazyhaar/designscore/observability"
	"github.com/hazyhaar/designscore/snapshot"
)

// Snapshot provider modes.
const (
	ProviderBrowser = "browser"
	ProviderStatic  = "static"
	ProviderAuto    = "auto"
)

// Config holds all designscore configuration.
type Config struct {
	Addr         string                        `yaml:"addr"`
	ResultsDir   string                        `yaml:"results_dir"`
	DBPath       string                        `yaml:"db_path"`
	LogLevel     string                        `yaml:"log_level"`
	Provider     string                        `yaml:"provider"`
	AllowPrivate bool                          `yaml:"allow_private"`
	Weights      analyzer.Weights              `yaml:"weights"`
	Thresholds   analyzer.Thresholds           `yaml:"thresholds"`
	Browser      snapshot.BrowserConfig        `yaml:"browser"`
	Report       ReportConfig                  `yaml:"report"`
	Retention    observability.RetentionConfig `yaml:"retention"`
	Heartbeat    time.Duration                 `yaml:"heartbeat_interval"`
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Template string `yaml:"template"` // empty uses the embedded template
	Timezone string `yaml:"timezone"`
	Markdown *bool  `yaml:"markdown"`
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ResultsDir == "" {
		c.ResultsDir = "results"
	}
	if c.DBPath == "" {
		c.DBPath = "designscore.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Provider == "" {
		c.Provider = ProviderBrowser
	}
	if c.Weights == (analyzer.Weights{}) {
		c.Weights = analyzer.DefaultWeights()
	}
	if c.Thresholds == (analyzer.Thresholds{}) {
		c.Thresholds = analyzer.DefaultThresholds()
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Browser.IdleWindow <= 0 {
		c.Browser.IdleWindow = 500 * time.Millisecond
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1440
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 900
	}
	if c.Report.Timezone == "" {
		c.Report.Timezone = "UTC"
	}
	if c.Report.Markdown == nil {
		on := true
		c.Report.Markdown = &on
	}
	if c.Retention.MetricsDays <= 0 {
		c.Retention.MetricsDays = 30
	}
	if c.Retention.EventsDays <= 0 {
		c.Retention.EventsDays = 90
	}
	if c.Retention.AuditDays <= 0 {
		c.Retention.AuditDays = 90
	}
	if c.Retention.HeartbeatsDays <= 0 {
		c.Retention.HeartbeatsDays = 7
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 30 * time.Second
	}
}

// applyEnv overrides file values with the DESIGNSCORE_* variables that are set.
func (c *Config) applyEnv() {
	c.Addr = env("DESIGNSCORE_ADDR", c.Addr)
	c.ResultsDir = env("DESIGNSCORE_RESULTS_DIR", c.ResultsDir)
	c.DBPath = env("DESIGNSCORE_DB", c.DBPath)
	c.LogLevel = env("DESIGNSCORE_LOG_LEVEL", c.LogLevel)
	c.Browser.RemoteURL = env("DESIGNSCORE_CHROME_URL", c.Browser.RemoteURL)
}

// Default returns the configuration used when no file is given, with
// environment overrides applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.defaults()
	return cfg
}

// Load reads a YAML config file, applies environment overrides and fills
// defaults. An empty path is the same as Default.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnv()
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderBrowser, ProviderStatic, ProviderAuto:
	default:
		errs = append(errs, fmt.Errorf("config: provider %q: want browser, static or auto", c.Provider))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: weights: %w", err))
	}
	for _, b := range [][3]int{c.Thresholds.Dimension, c.Thresholds.Overall} {
		if !(b[0] <= b[1] && b[1] <= b[2]) {
			errs = append(errs, fmt.Errorf("config: thresholds %v must be ascending", b))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: log level %q: want debug, info, warn or error", c.LogLevel)
}

// Location resolves the report time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone: %w", err)
	}
	return loc, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
