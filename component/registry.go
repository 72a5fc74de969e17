package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/gears/logger"
)

const stopTimeout = 10 * time.Second

// Registry starts components in registration order and stops them in
// reverse. Register the store before the engine that depends on it.
type Registry struct {
	mu      sync.RWMutex
	order   []Component
	byName  map[string]Component
	running map[string]bool
	log     *logger.Logger
}

// NewRegistry returns an empty registry. A nil log uses the global logger.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Registry{
		byName:  make(map[string]Component),
		running: make(map[string]bool),
		log:     log.WithComponent("registry"),
	}
}

// Register adds c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("component %s already registered", name)
	}
	r.order = append(r.order, c)
	r.byName[name] = c
	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts every component and stops at the first failure. What
// already started stays running until StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.order {
		fields := logger.Fields(logger.FieldComponent, c.Name())
		if err := c.Start(ctx); err != nil {
			fields[logger.FieldError] = err.Error()
			r.log.Error("component start failed", fields)
			return fmt.Errorf("failed to start %s: %w", c.Name(), err)
		}
		r.running[c.Name()] = true

		if d, ok := c.(Describable); ok {
			desc := d.Describe()
			fields["type"], fields["details"] = desc.Type, desc.Details
		}
		r.log.Info("component started", fields)
	}
	return nil
}

// StopAll stops running components in reverse order, giving each up to
// stopTimeout. Every component is attempted; failures are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.order[i]
		if !r.running[c.Name()] {
			continue
		}
		delete(r.running, c.Name())
		if err := r.stopOne(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) stopOne(ctx context.Context, c Component) error {
	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	fields := logger.Fields(logger.FieldComponent, c.Name())
	if err := c.Stop(ctx); err != nil {
		fields[logger.FieldError] = err.Error()
		r.log.Error("component stop failed", fields)
		return err
	}
	r.log.Info("component stopped", fields)
	return nil
}

// HealthAll checks every component in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, len(r.order))
	for i, c := range r.order {
		out[i] = c.Health(ctx)
	}
	return out
}

// Healthy reports whether every component is fully healthy.
func (r *Registry) Healthy(ctx context.Context) bool {
	return Overall(r.HealthAll(ctx)) == StatusHealthy
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Component(nil), r.order...)
}
