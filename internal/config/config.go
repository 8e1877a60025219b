// Package config loads and validates repolens configuration from file,
// environment, and defaults.
package config

import (
	"errors"
	"time"

	"github.com/repolens-dev/repolens/internal/report"
)

// Config is the top-level configuration struct for repolens.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Report     ReportConfig     `mapstructure:"report"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
}

// AnalysisConfig holds per-analyzer deadlines and the run-level timeout.
type AnalysisConfig struct {
	StructuralDeadline  time.Duration `mapstructure:"structural_deadline"`
	SecurityDeadline    time.Duration `mapstructure:"security_deadline"`
	PerformanceDeadline time.Duration `mapstructure:"performance_deadline"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
}

// EnrichmentConfig holds advisory gateway settings. An empty endpoint (or
// Disabled) skips the live tier entirely, so lookups start at the bundled
// dataset.
type EnrichmentConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	Disabled       bool          `mapstructure:"disabled"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffCeiling time.Duration `mapstructure:"backoff_ceiling"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	Formats   []string `mapstructure:"formats"`
	OutputDir string   `mapstructure:"output_dir"`
}

// ServerConfig holds the HTTP front end settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidDeadline indicates a non-positive analyzer deadline.
	ErrInvalidDeadline = errors.New("analysis deadlines must be positive")
	// ErrInvalidRunTimeout indicates a non-positive run timeout.
	ErrInvalidRunTimeout = errors.New("analysis.run_timeout must be positive")
	// ErrInvalidMaxAttempts indicates a non-positive enrichment retry budget.
	ErrInvalidMaxAttempts = errors.New("enrichment.max_attempts must be positive")
	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
	// ErrInvalidFormat indicates an unsupported report format name.
	ErrInvalidFormat = errors.New("report.formats contains an unsupported format")
)

// logLevels are the accepted log.level values.
var logLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	analysisErr := c.validateAnalysis()
	if analysisErr != nil {
		return analysisErr
	}

	if c.Enrichment.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	if _, ok := logLevels[c.Log.Level]; !ok {
		return ErrInvalidLogLevel
	}

	return c.validateFormats()
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.StructuralDeadline <= 0 ||
		c.Analysis.SecurityDeadline <= 0 ||
		c.Analysis.PerformanceDeadline <= 0 {
		return ErrInvalidDeadline
	}

	if c.Analysis.RunTimeout <= 0 {
		return ErrInvalidRunTimeout
	}

	return nil
}

func (c *Config) validateFormats() error {
	supported := make(map[string]struct{})
	for _, name := range report.SupportedFormats() {
		supported[name] = struct{}{}
	}

	for _, format := range c.Report.Formats {
		if _, ok := supported[format]; !ok {
			return ErrInvalidFormat
		}
	}

	return nil
}
