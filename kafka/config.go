package kafka

import (
	"fmt"
	"time"

	"github.com/kbukum/gears/security"
	"github.com/kbukum/gears/validation"
)

// Config describes the consumer group behind the kafka reader.
type Config struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers" validate:"required_if=Enabled true,dive,hostname_port"`
	GroupID     string   `mapstructure:"group_id" validate:"required_if=Enabled true"`
	Topic       string   `mapstructure:"topic" validate:"required_if=Enabled true"`
	StartOffset string   `mapstructure:"start_offset" validate:"omitempty,oneof=first last"` // used when the group has no commit
	MaxBytes    int      `mapstructure:"max_bytes" validate:"gte=0"`

	SessionTimeout    string `mapstructure:"session_timeout"`
	HeartbeatInterval string `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  string `mapstructure:"rebalance_timeout"`
	DialTimeout       string `mapstructure:"dial_timeout"`

	TLS  security.TLSConfig `mapstructure:"tls"`
	SASL SASLConfig         `mapstructure:"sasl"`
}

// SASLConfig selects broker authentication.
type SASLConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Mechanism string `mapstructure:"mechanism" validate:"omitempty,oneof=PLAIN SCRAM-SHA-256 SCRAM-SHA-512"`
	Username  string `mapstructure:"username" validate:"required_if=Enabled true"`
	Password  string `mapstructure:"password"`
}

func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	setDefault(&c.GroupID, "gears")
	setDefault(&c.StartOffset, "first")
	if c.MaxBytes == 0 {
		c.MaxBytes = 10e6
	}
	setDefault(&c.SessionTimeout, "30s")
	setDefault(&c.HeartbeatInterval, "3s")
	setDefault(&c.RebalanceTimeout, "30s")
	setDefault(&c.DialTimeout, "10s")
	if c.SASL.Enabled {
		setDefault(&c.SASL.Mechanism, "PLAIN")
	}
}

// Validate is a no-op for a disabled reader.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	for _, name := range []string{"session_timeout", "heartbeat_interval", "rebalance_timeout", "dial_timeout"} {
		if v := c.timeout(name); !validDuration(v) {
			return fmt.Errorf("invalid %s %q", name, v)
		}
	}
	return c.TLS.Validate()
}

func (c *Config) timeout(name string) string {
	switch name {
	case "session_timeout":
		return c.SessionTimeout
	case "heartbeat_interval":
		return c.HeartbeatInterval
	case "rebalance_timeout":
		return c.RebalanceTimeout
	default:
		return c.DialTimeout
	}
}

func setDefault(field *string, v string) {
	if *field == "" {
		*field = v
	}
}

func validDuration(s string) bool {
	d, err := time.ParseDuration(s)
	return err == nil && d >= 0
}

// ParseDuration returns zero for an empty or malformed value.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
