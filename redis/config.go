package redis

import (
	"fmt"
	"time"

	"github.com/kbukum/gears/security"
	"github.com/kbukum/gears/validation"
)

// Config describes the store connection. Keyspace notifications for
// registered pipelines are read from DB.
type Config struct {
	Enabled      bool   `mapstructure:"enabled"`
	Addr         string `mapstructure:"addr" validate:"required_if=Enabled true,omitempty,hostname_port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db" validate:"gte=0,lte=15"`
	PoolSize     int    `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns int    `mapstructure:"min_idle_conns" validate:"gte=0"`
	MaxRetries   int    `mapstructure:"max_retries"`
	ScanCount    int64  `mapstructure:"scan_count" validate:"gte=0"`

	// Blocking stream reads extend ReadTimeout by their block time.
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`

	TLS security.TLSConfig `mapstructure:"tls"`
}

func (c *Config) ApplyDefaults() {
	defaultInt(&c.PoolSize, 10)
	defaultInt(&c.MinIdleConns, 2)
	defaultInt(&c.MaxRetries, 3)
	if c.ScanCount <= 0 {
		c.ScanCount = 100
	}
	for _, d := range []struct {
		field *string
		value string
	}{
		{&c.DialTimeout, "5s"},
		{&c.ReadTimeout, "3s"},
		{&c.WriteTimeout, "3s"},
	} {
		if *d.field == "" {
			*d.field = d.value
		}
	}
}

// Validate is a no-op for a disabled store.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	timeouts := [][2]string{
		{"dial_timeout", c.DialTimeout},
		{"read_timeout", c.ReadTimeout},
		{"write_timeout", c.WriteTimeout},
	}
	for _, t := range timeouts {
		if _, err := time.ParseDuration(t[1]); err != nil {
			return fmt.Errorf("invalid %s %q: %w", t[0], t[1], err)
		}
	}
	return c.TLS.Validate()
}

func defaultInt(field *int, v int) {
	if *field <= 0 {
		*field = v
	}
}
