package config

import (
	"fmt"

	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/validation"
)

// ServiceConfig holds the settings every gears process shares. Commands
// embed it in their own config with mapstructure squash:
//
//	type AppConfig struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    Redis redis.Config   `mapstructure:"redis"`
//	}
type ServiceConfig struct {
	Name        string        `mapstructure:"name" validate:"required"`
	Environment string        `mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `mapstructure:"version"`
	Debug       bool          `mapstructure:"debug"`
	Logging     logger.Config `mapstructure:"logging"`
}

// GetServiceConfig returns the base config. Embedding structs get it
// promoted, which is what bootstrap.Config expects.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// ApplyDefaults names the service "gears" in development unless told
// otherwise. Development turns Debug on.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "gears"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Debug = c.Debug || c.Environment == "development"
	c.Logging.ApplyDefaults()
}

// Validate checks the shared fields and the logging section.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
