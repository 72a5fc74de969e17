package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/gears/component"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/redis"
)

// Component stands in for redis.Component in app tests. Start launches
// miniredis and connects a gears client to it.
type Component struct {
	mu     sync.Mutex
	mini   *miniredis.Miniredis
	client *redis.Client
}

var _ component.Component = (*Component)(nil)

func NewComponent() *Component { return &Component{} }

// NewClient returns a client on a fresh miniredis. Both close with the test.
func NewClient(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func (c *Component) Client() *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

func (c *Component) Server() *miniredis.Miniredis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mini
}

func (c *Component) Name() string { return "redis" }

func (c *Component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mini != nil {
		return errors.New("miniredis already running")
	}

	mini, err := miniredis.Run()
	if err != nil {
		return err
	}
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		mini.Close()
		return err
	}
	c.mini, c.client = mini, client
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mini == nil {
		return nil
	}
	err := c.client.Close()
	c.mini.Close()
	c.mini, c.client = nil, nil
	return err
}

func (c *Component) Health(context.Context) component.Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mini == nil {
		return component.Unhealthy(c.Name(), "not started")
	}
	return component.Healthy(c.Name(), c.mini.Addr())
}
