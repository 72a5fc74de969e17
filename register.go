package gears

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/observability"
	"github.com/kbukum/gears/operation"
)

// RegisterOption configures Register.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	mode           engine.Mode
	onRegistered   func(ctx context.Context) error
	onUnregistered func(ctx context.Context) error
}

// WithMode sets the execution mode. Defaults to engine.ModeAsync.
func WithMode(m engine.Mode) RegisterOption {
	return func(o *registerOptions) { o.mode = m }
}

// OnRegistered sets a hook the engine runs once the registration is active.
func OnRegistered(fn func(ctx context.Context) error) RegisterOption {
	return func(o *registerOptions) { o.onRegistered = fn }
}

// OnUnregistered sets a hook the engine runs once when the registration is
// removed. It never runs for a registration that failed.
func OnUnregistered(fn func(ctx context.Context) error) RegisterOption {
	return func(o *registerOptions) { o.onUnregistered = fn }
}

// Register activates the pipeline for continuous execution and returns the
// registration id once the engine has acknowledged it.
func (b *Builder[T]) Register(ctx context.Context, opts ...RegisterOption) (string, error) {
	o := registerOptions{mode: engine.ModeAsync}
	for _, opt := range opts {
		opt(&o)
	}

	c := b.c
	ctx, span := observability.StartSpan(ctx, observability.SpanRegister,
		attribute.String(observability.AttrPipeline, string(c.handle)),
		attribute.String(observability.AttrMode, o.mode.String()),
	)
	id, err := c.register(ctx, o)
	observability.EndSpan(span, err)
	return id, err
}

func (c *chain) register(ctx context.Context, o registerOptions) (string, error) {
	hooks, err := c.hooks(o)
	if err != nil {
		return "", err
	}
	if err := c.begin(stateRegistered); err != nil {
		return "", err
	}

	id, err := c.eng.Register(ctx, c.handle, c.reader, o.mode, hooks)
	if err != nil {
		err = errors.EngineCall("register", err)
		c.finish(err)
		c.log.Error("register failed", logger.ErrorFields("register", err))
		return "", err
	}

	c.mu.Lock()
	c.regID = id
	c.mu.Unlock()
	c.finish(nil)

	c.log.Info("pipeline registered", logger.Fields(
		logger.FieldRegistration, id,
		logger.FieldMode, o.mode.String(),
	))
	return id, nil
}

func (c *chain) hooks(o registerOptions) (engine.Hooks, error) {
	var hooks engine.Hooks
	var err error
	if o.onRegistered != nil {
		if hooks.OnRegistered, err = c.hook(operation.KindOnRegistered, o.onRegistered); err != nil {
			return hooks, err
		}
	}
	onUnregistered := func(ctx context.Context) error {
		defer c.unregistered()
		if o.onUnregistered == nil {
			return nil
		}
		return o.onUnregistered(ctx)
	}
	if hooks.OnUnregistered, err = c.hook(operation.KindOnUnregistered, onUnregistered); err != nil {
		return hooks, err
	}
	return hooks, nil
}

// unregistered records the end of the registration. The scope is released
// here when the pipeline was closed while the registration was still active.
func (c *chain) unregistered() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regEnded = true
	if c.state == stateClosed {
		c.sc.Close()
	}
}

func (c *chain) hook(kind operation.Kind, fn func(ctx context.Context) error) ([]byte, error) {
	return operation.Encode(operation.Operation{
		Kind: kind,
		Fn:   c.sc.Bind(operation.HookFunc(fn)),
	})
}

// RegistrationID returns the id of an active registration, or "".
func (b *Builder[T]) RegistrationID() string {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	return b.c.regID
}
