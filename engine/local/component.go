package local

import (
	"context"
	"fmt"

	"github.com/kbukum/gears/component"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/observability"
	"github.com/kbukum/gears/resilience"
)

// Component wraps Engine and implements component.Component.
type Component struct {
	cfg     Config
	log     *logger.Logger
	store   func() Store
	metrics *observability.Metrics
	engine  *Engine
}

var _ component.Component = (*Component)(nil)

// NewComponent creates an engine component. store is called on Start so a
// store component registered earlier is already connected; it may be nil.
func NewComponent(cfg Config, log *logger.Logger, store func() Store, metrics *observability.Metrics) *Component {
	return &Component{cfg: cfg, log: log, store: store, metrics: metrics}
}

// Engine returns the engine, or nil if not started.
func (c *Component) Engine() *Engine { return c.engine }

// Name returns the component name.
func (c *Component) Name() string { return "engine" }

// Start creates the engine.
func (c *Component) Start(_ context.Context) error {
	opts := []Option{WithMetrics(c.metrics)}
	if c.store != nil {
		if s := c.store(); s != nil {
			opts = append(opts, WithStore(s))
		}
	}
	e, err := New(c.cfg, c.log, opts...)
	if err != nil {
		return fmt.Errorf("engine start: %w", err)
	}
	c.engine = e
	return nil
}

// Stop ends every registration.
func (c *Component) Stop(ctx context.Context) error {
	if c.engine == nil {
		return nil
	}
	return c.engine.Close(ctx)
}

// Health reports whether the engine is running.
func (c *Component) Health(_ context.Context) component.Health {
	if c.engine == nil {
		return component.Unhealthy(c.Name(), "engine not started")
	}
	regs := len(c.engine.Registrations())
	if state := c.engine.StoreState(); state != resilience.StateClosed {
		return component.Degraded(c.Name(), "store breaker %s, %d registrations", state, regs)
	}
	return component.Healthy(c.Name(), fmt.Sprintf("%d registrations", regs))
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	cfg := c.cfg
	cfg.ApplyDefaults()
	return component.Description{
		Name:    "Local Engine",
		Type:    "engine",
		Details: fmt.Sprintf("workers=%d batch=%d/%s hashtag=%s", cfg.Workers, cfg.BatchSize, cfg.BatchTimeout, cfg.Hashtag),
	}
}
