package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/gears/component"
	"github.com/kbukum/gears/logger"
)

// slowPing marks the store degraded without failing readiness.
const slowPing = 250 * time.Millisecond

// Component owns the store connection for the lifetime of the app.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent returns an unstarted store component. The client is dialed
// in Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client is nil until Start succeeds.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return "redis" }

func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start: %w", err)
	}
	c.client = client
	return nil
}

func (c *Component) Stop(context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Health pings the store and reports round trip and pool usage.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.client == nil {
		return component.Unhealthy(c.Name(), "not connected")
	}
	began := time.Now()
	if err := c.client.Ping(ctx); err != nil {
		return component.Unhealthy(c.Name(), "ping: %v", err)
	}
	rtt := time.Since(began)
	stats := c.client.Unwrap().PoolStats()
	if rtt > slowPing {
		return component.Degraded(c.Name(), "slow ping %s", rtt.Round(time.Millisecond))
	}
	return component.Healthy(c.Name(), fmt.Sprintf("%s rtt=%s conns=%d/%d",
		c.cfg.Addr, rtt.Round(time.Microsecond), stats.TotalConns-stats.IdleConns, stats.TotalConns))
}

func (c *Component) Describe() component.Description {
	tls := ""
	if c.cfg.TLS.IsEnabled() {
		tls = " tls"
	}
	return component.Description{
		Name:    "Store",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d pool=%d%s", c.cfg.Addr, c.cfg.DB, c.cfg.PoolSize, tls),
	}
}
