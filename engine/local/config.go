package local

import (
	"fmt"
	"time"

	"github.com/kbukum/gears/validation"
)

// Config holds the local engine configuration.
type Config struct {
	// Workers is the number of execution slots.
	Workers int `mapstructure:"workers" validate:"gte=0"`

	// BatchSize is the maximum number of records one registered execution handles.
	BatchSize int `mapstructure:"batch_size" validate:"gte=0"`

	// BatchTimeout flushes a partial batch after this long (e.g. "50ms").
	BatchTimeout string `mapstructure:"batch_timeout"`

	// Hashtag is the shard hashtag reported to pipelines.
	Hashtag string `mapstructure:"hashtag"`

	// Settings are configuration values served by ConfigGet before the store.
	Settings map[string]string `mapstructure:"settings"`

	// BreakerFailures is the number of consecutive store failures after which
	// store calls fail fast.
	BreakerFailures int `mapstructure:"breaker_failures" validate:"gte=0"`

	// BreakerTimeout is how long store calls fail fast before probing (e.g. "30s").
	BreakerTimeout string `mapstructure:"breaker_timeout"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "50ms"
	}
	if c.Hashtag == "" {
		c.Hashtag = "{06S}"
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerTimeout == "" {
		c.BreakerTimeout = "30s"
	}
}

// Validate checks ranges and the batch timeout.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if _, err := c.batchTimeout(); err != nil {
		return err
	}
	if c.BreakerTimeout != "" {
		if _, err := time.ParseDuration(c.BreakerTimeout); err != nil {
			return fmt.Errorf("invalid breaker_timeout %q: %w", c.BreakerTimeout, err)
		}
	}
	return nil
}

func (c *Config) batchTimeout() (time.Duration, error) {
	if c.BatchTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.BatchTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid batch_timeout %q: %w", c.BatchTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid batch_timeout %q: must not be negative", c.BatchTimeout)
	}
	return d, nil
}
