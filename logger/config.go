package logger

import (
	"fmt"
	"slices"
)

var (
	levels  = []string{"trace", "debug", "info", "warn", "error", "fatal"}
	formats = []string{"json", "console", "pretty"}
)

// Config is the logging section of the service config.
type Config struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Output    string `mapstructure:"output"` // stdout or stderr
	NoColor   bool   `mapstructure:"no_color"`
	Timestamp bool   `mapstructure:"timestamp"`
	Caller    bool   `mapstructure:"caller"`

	// PipelineLevel drops messages logged from pipeline steps below it:
	// debug, verbose, notice or warning. Empty keeps all of them.
	PipelineLevel string `mapstructure:"pipeline_level"`
}

// ApplyDefaults fills empty fields. Timestamps are always on.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

// Validate rejects unknown levels and formats.
func (c *Config) Validate() error {
	if !slices.Contains(levels, c.Level) {
		return fmt.Errorf("logging.level must be one of %v (got: %s)", levels, c.Level)
	}
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("logging.format must be one of %v (got: %s)", formats, c.Format)
	}
	if c.PipelineLevel != "" {
		if _, ok := ParseLevel(c.PipelineLevel); !ok {
			return fmt.Errorf("logging.pipeline_level must be one of debug, verbose, notice, warning (got: %s)", c.PipelineLevel)
		}
	}
	return nil
}
