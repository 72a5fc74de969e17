package main

import (
	"fmt"

	"github.com/kbukum/gears/config"
	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/engine/local"
	"github.com/kbukum/gears/kafka"
	"github.com/kbukum/gears/observability"
	"github.com/kbukum/gears/redis"
	"github.com/kbukum/gears/server"
	"github.com/kbukum/gears/validation"
	"github.com/kbukum/gears/version"
)

// AppConfig is the configuration of the gears binary.
type AppConfig struct {
	config.ServiceConfig `mapstructure:",squash"`

	Redis         redis.Config         `mapstructure:"redis"`
	Kafka         kafka.Config         `mapstructure:"kafka"`
	Local         local.Config         `mapstructure:"local"`
	Server        server.Config        `mapstructure:"server"`
	Observability observability.Config `mapstructure:"observability"`
	Watch         WatchConfig          `mapstructure:"watch"`
}

// WatchConfig lists the pipelines serve registers at startup.
type WatchConfig struct {
	// Keys are key patterns followed through keyspace notifications.
	Keys []string `mapstructure:"keys"`
	// Events limits key registrations to these keyspace events.
	Events []string `mapstructure:"events"`
	// Streams are Redis streams followed for new entries.
	Streams []string `mapstructure:"streams"`
	// Mode is the execution mode of every watch registration.
	Mode string `mapstructure:"mode" validate:"omitempty,oneof=async async_local sync"`
}

// ApplyDefaults fills unset fields of every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Local.ApplyDefaults()
	c.Server.ApplyDefaults()

	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name     string
		validate func() error
	}{
		{"redis", c.Redis.Validate},
		{"kafka", c.Kafka.Validate},
		{"local", c.Local.Validate},
		{"server", c.Server.Validate},
		{"observability", func() error {
			if !c.Observability.Enabled {
				return nil
			}
			return validation.Validate(&c.Observability)
		}},
		{"watch", func() error { return validation.Validate(&c.Watch) }},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("config.%s: %w", s.name, err)
		}
	}
	if (len(c.Watch.Keys) > 0 || len(c.Watch.Streams) > 0) && !c.Redis.Enabled {
		return fmt.Errorf("config.watch: keys and streams need redis.enabled")
	}
	return nil
}

// WatchMode parses Watch.Mode.
func (c *AppConfig) WatchMode() engine.Mode {
	m, err := engine.ParseMode(c.Watch.Mode)
	if err != nil {
		return engine.ModeAsync
	}
	return m
}
